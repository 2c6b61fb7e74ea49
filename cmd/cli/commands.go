package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"market-curves/internal/analysis"
	"market-curves/internal/batch"
	"market-curves/internal/curve"
	"market-curves/internal/data"
	"market-curves/internal/model"
	"market-curves/internal/publish"
	"market-curves/internal/store"
)

// flags
var (
	yearsFlag = &cli.IntSliceFlag{
		Name:  "years",
		Usage: "years to process (defaults to batch.years)",
	}
	monthsFlag = &cli.IntSliceFlag{
		Name:  "months",
		Usage: "months to process (defaults to batch.months)",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "output directory (defaults to batch.output_dir)",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "concurrent month units, 0 for one per unit",
		Value: -1,
	}
	stepFlag = &cli.Float64Flag{
		Name:  "step",
		Usage: "intersection grid step (defaults to curves.grid_step)",
	}
	saveFlag = &cli.BoolFlag{
		Name:  "save",
		Usage: "also save curve sets to the store",
	}
	supplyFlag = &cli.StringFlag{
		Name:     "supply",
		Usage:    "JSON file with the supply curve [[q,p],...]",
		Required: true,
	}
	demandFlag = &cli.StringFlag{
		Name:     "demand",
		Usage:    "JSON file with the demand curve [[q,p],...]",
		Required: true,
	}
	aFlag = &cli.StringFlag{
		Name:     "a",
		Usage:    "JSON file with the first curve",
		Required: true,
	}
	bFlag = &cli.StringFlag{
		Name:     "b",
		Usage:    "JSON file with the second curve",
		Required: true,
	}
	sampleFlag = &cli.Float64Flag{
		Name:  "sample",
		Usage: "keep each point with this probability before comparing (0 keeps all)",
	}
	seedFlag = &cli.Int64Flag{
		Name:  "seed",
		Usage: "random seed for --sample",
		Value: 1,
	}
	inFlag = &cli.StringFlag{
		Name:     "in",
		Usage:    "per-year supply JSON table written by the curves command",
		Required: true,
	}
	topFlag = &cli.IntFlag{
		Name:  "top",
		Usage: "number of days to list by clearing price spread",
		Value: 5,
	}
	shiftDaysFlag = &cli.IntFlag{
		Name:  "shift-days",
		Usage: "persistence baseline lag in days",
		Value: 1,
	}
)

// commands
var (
	curvesCmd = &cli.Command{
		Name:   "curves",
		Usage:  "Build curves and clearing points for every (year, month) input file",
		Action: curvesAction,
		Flags:  []cli.Flag{yearsFlag, monthsFlag, outFlag, workersFlag, stepFlag, saveFlag},
	}
	crossCmd = &cli.Command{
		Name:   "cross",
		Usage:  "Find the clearing point of two curve files",
		Action: crossAction,
		Flags:  []cli.Flag{supplyFlag, demandFlag, stepFlag},
	}
	distanceCmd = &cli.Command{
		Name:   "distance",
		Usage:  "Wasserstein distance between two curve files",
		Action: distanceAction,
		Flags:  []cli.Flag{aFlag, bFlag, sampleFlag, seedFlag},
	}
	statsCmd = &cli.Command{
		Name:   "stats",
		Usage:  "Summarise clearing prices of a per-year output table",
		Action: statsAction,
		Flags:  []cli.Flag{inFlag, topFlag, shiftDaysFlag},
	}
)

func gridStep(ctx *cli.Context) float64 {
	if ctx.IsSet(stepFlag.Name) {
		return ctx.Float64(stepFlag.Name)
	}
	return cfg.Curves.GridStep
}

func finder(ctx *cli.Context) curve.Finder {
	f := curve.NewFinder(gridStep(ctx))
	f.MaxGridPoints = cfg.Curves.MaxGridPoints
	return f
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func curvesAction(ctx *cli.Context) error {
	years := cfg.Batch.Years
	if ctx.IsSet(yearsFlag.Name) {
		years = ctx.IntSlice(yearsFlag.Name)
	}
	months := cfg.Batch.Months
	if ctx.IsSet(monthsFlag.Name) {
		months = ctx.IntSlice(monthsFlag.Name)
	}
	if len(years) == 0 {
		return fmt.Errorf("no years given: set --years or batch.years")
	}
	out := cfg.Batch.OutputDir
	if ctx.IsSet(outFlag.Name) {
		out = ctx.String(outFlag.Name)
	}
	workers := cfg.Batch.Workers
	if ctx.Int(workersFlag.Name) >= 0 {
		workers = ctx.Int(workersFlag.Name)
	}

	src := data.CSVSource{PathFormat: cfg.Data.InputPathFormat, IntervalsPerDay: cfg.Data.IntervalsPerDay}
	engine := batch.New(src, finder(ctx), workers)

	res, err := engine.Run(ctx.Context, years, months)
	if err != nil {
		return err
	}

	for _, f := range res.Failures {
		log.WithField("run", res.RunID.String()).Warn(f.Error())
	}

	files, err := batch.WriteResult(out, res)
	if err != nil {
		return err
	}
	for _, f := range files {
		log.Debugf("wrote %s", f)
	}

	if ctx.Bool(saveFlag.Name) || cfg.Batch.SaveToStore {
		s, err := store.NewCurveStore(cfg.Store.Dir, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		if err := s.Save(ctx.Context, res.RunID.String(), res.Sets); err != nil {
			return err
		}
		log.Infof("saved %d curve sets under run %s", len(res.Sets), res.RunID)
	}

	fmt.Printf("run %s: %d intervals, %d failures, %d files in %s\n",
		res.RunID, len(res.Sets), len(res.Failures), len(files), out)
	if !res.EmptyOnly() {
		return fmt.Errorf("run %s finished with failures", res.RunID)
	}
	return nil
}

func crossAction(ctx *cli.Context) error {
	supply, err := data.LoadCurveJSON(ctx.String(supplyFlag.Name))
	if err != nil {
		return err
	}
	demand, err := data.LoadCurveJSON(ctx.String(demandFlag.Name))
	if err != nil {
		return err
	}
	cross, err := finder(ctx).Find(supply, demand)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"cross_point": cross})
}

func distanceAction(ctx *cli.Context) error {
	a, err := data.LoadCurveJSON(ctx.String(aFlag.Name))
	if err != nil {
		return err
	}
	b, err := data.LoadCurveJSON(ctx.String(bFlag.Name))
	if err != nil {
		return err
	}
	if p := ctx.Float64(sampleFlag.Name); p > 0 {
		rng := rand.New(rand.NewSource(ctx.Int64(seedFlag.Name)))
		a = curve.Subsample(a, p, rng)
		b = curve.Subsample(b, p, rng)
		log.Debugf("subsampled to %d and %d points", len(a), len(b))
	}
	d, err := curve.Wasserstein(a, b)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"distance": curve.Round(d), "points_a": len(a), "points_b": len(b)})
}

func statsAction(ctx *cli.Context) error {
	rows, err := data.LoadIntervalResults(ctx.String(inFlag.Name))
	if err != nil {
		return err
	}
	sets, err := rowsToSets(rows)
	if err != nil {
		return err
	}

	summary := analysis.ClearingStats(sets)
	fmt.Printf("intervals: %d (%s .. %s)\n", summary.Count,
		summary.Start.Format(model.DateLayout), summary.End.Format(model.DateLayout))
	fmt.Printf("clearing price: min %.2f  mean %.2f  max %.2f  p05 %.2f  p95 %.2f\n",
		summary.MinPrice, summary.MeanPrice, summary.MaxPrice, summary.P05Price, summary.P95Price)
	fmt.Printf("mean cleared quantity: %.2f\n", summary.MeanQuantity)

	mae, err := analysis.BaselineMAE(analysis.ClearingPrices(sets), ctx.Int(shiftDaysFlag.Name), cfg.Data.IntervalsPerDay)
	if err != nil {
		log.Warnf("baseline skipped: %v", err)
	} else {
		fmt.Printf("persistence baseline MAE (%d day): %.4f\n", ctx.Int(shiftDaysFlag.Name), mae)
	}

	dists, skipped := analysis.DayOverDayDistance(sets)
	if len(dists) > 0 {
		sum := 0.0
		for _, d := range dists {
			sum += d.Distance
		}
		fmt.Printf("day-over-day supply distance: mean %.4f over %d pairs (%d skipped)\n",
			sum/float64(len(dists)), len(dists), skipped)
	}

	ranked := analysis.RankDaysBySpread(sets)
	top := ctx.Int(topFlag.Name)
	if top > len(ranked) {
		top = len(ranked)
	}
	for i, d := range ranked[:top] {
		fmt.Printf("%2d. %s spread %.2f (min %.2f max %.2f)\n",
			i+1, d.Day.Format(model.DateLayout), d.SpreadP95P05, d.MinPrice, d.MaxPrice)
	}
	return nil
}

func rowsToSets(rows []model.IntervalResult) ([]model.CurveSet, error) {
	sets := make([]model.CurveSet, 0, len(rows))
	for _, r := range rows {
		day, err := time.Parse(model.DateLayout, r.Day)
		if err != nil {
			return nil, fmt.Errorf("row %s interval %d: %w", r.Day, r.Interval, err)
		}
		sets = append(sets, model.CurveSet{
			Day:      day,
			Interval: r.Interval,
			Supply:   r.RawCurve,
			Cross:    r.CrossPoint,
		})
	}
	return sets, nil
}

// publish and weather commands

var (
	dirFlag = &cli.StringFlag{
		Name:  "dir",
		Usage: "directory to archive (defaults to batch.output_dir)",
	}
	bucketFlag = &cli.StringFlag{
		Name:  "bucket",
		Usage: "S3 bucket (defaults to publish.bucket)",
	}
	regionFlag = &cli.StringFlag{
		Name:  "region",
		Usage: "market region ID from the regions file",
	}
	latFlag = &cli.Float64Flag{
		Name:  "lat",
		Usage: "latitude, when no --region is given",
	}
	lonFlag = &cli.Float64Flag{
		Name:  "lon",
		Usage: "longitude, when no --region is given",
	}
	startFlag = &cli.StringFlag{
		Name:     "start",
		Usage:    "start date YYYY-MM-DD",
		Required: true,
	}
	endFlag = &cli.StringFlag{
		Name:     "end",
		Usage:    "end date YYYY-MM-DD",
		Required: true,
	}
	dailyFlag = &cli.StringSliceFlag{
		Name:  "daily",
		Usage: "daily variables to fetch",
		Value: cli.NewStringSlice("temperature_2m_max", "temperature_2m_min"),
	}
	initFlag = &cli.BoolFlag{
		Name:  "init",
		Usage: "write the built-in regions to the regions file",
	}
)

var (
	publishCmd = &cli.Command{
		Name:   "publish",
		Usage:  "Archive an output directory and upload it to S3",
		Action: publishAction,
		Flags:  []cli.Flag{dirFlag, bucketFlag},
	}
	weatherCmd = &cli.Command{
		Name:   "weather",
		Usage:  "Fetch daily weather for a region or coordinate",
		Action: weatherAction,
		Flags:  []cli.Flag{regionFlag, latFlag, lonFlag, startFlag, endFlag, dailyFlag},
	}
	regionsCmd = &cli.Command{
		Name:   "regions",
		Usage:  "List market regions",
		Action: regionsAction,
		Flags:  []cli.Flag{initFlag},
	}
)

func publishAction(ctx *cli.Context) error {
	dir := cfg.Batch.OutputDir
	if ctx.IsSet(dirFlag.Name) {
		dir = ctx.String(dirFlag.Name)
	}
	bucket := cfg.Publish.Bucket
	if ctx.IsSet(bucketFlag.Name) {
		bucket = ctx.String(bucketFlag.Name)
	}
	p, err := publish.NewFromEnv(ctx.Context, bucket, cfg.Publish.Region, cfg.Publish.Prefix)
	if err != nil {
		return err
	}
	key, err := p.Publish(ctx.Context, dir)
	if err != nil {
		return err
	}
	fmt.Printf("uploaded s3://%s/%s\n", bucket, key)
	return nil
}

func weatherAction(ctx *cli.Context) error {
	lat, lon := ctx.Float64(latFlag.Name), ctx.Float64(lonFlag.Name)
	timezone := "auto"
	if id := ctx.String(regionFlag.Name); id != "" {
		list, err := data.LoadRegionsOrDefault(cfg.Data.RegionsFile)
		if err != nil {
			return err
		}
		region, ok := list.Find(id)
		if !ok {
			return fmt.Errorf("unknown region %q", id)
		}
		lat, lon, timezone = region.Latitude, region.Longitude, region.Timezone
	} else if !ctx.IsSet(latFlag.Name) || !ctx.IsSet(lonFlag.Name) {
		return fmt.Errorf("either --region or both --lat and --lon are required")
	}

	client := data.NewWeatherClient(cfg.Weather.BaseURL)
	client.MaxAttempts = cfg.Weather.MaxAttempts
	client.RetryDelay = cfg.Weather.RetryDelay

	resp, err := client.FetchDailyByString(ctx.Context, lat, lon,
		ctx.String(startFlag.Name), ctx.String(endFlag.Name), ctx.StringSlice(dailyFlag.Name), timezone)
	if err != nil {
		return err
	}
	return printJSON(resp)
}

func regionsAction(ctx *cli.Context) error {
	if ctx.Bool(initFlag.Name) {
		list := &data.RegionList{
			UpdatedAt: time.Now().UTC().Format(time.RFC3339),
			Regions:   data.DefaultRegions,
		}
		if err := data.SaveRegions(list, cfg.Data.RegionsFile); err != nil {
			return err
		}
		log.Infof("wrote %d regions to %s", len(list.Regions), cfg.Data.RegionsFile)
		return nil
	}

	list, err := data.LoadRegionsOrDefault(cfg.Data.RegionsFile)
	if err != nil {
		return err
	}
	for _, r := range list.Regions {
		fmt.Printf("%-6s %-10s %-4s %-20s %9.4f %9.4f\n", r.ID, r.Name, r.Market, r.Timezone, r.Latitude, r.Longitude)
	}
	return nil
}
