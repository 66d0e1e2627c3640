package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/PitPlan/internal/engine"
	"github.com/piwi3910/PitPlan/internal/executor"
	"github.com/piwi3910/PitPlan/internal/export"
	"github.com/piwi3910/PitPlan/internal/feasibility"
	"github.com/piwi3910/PitPlan/internal/geometry"
	"github.com/piwi3910/PitPlan/internal/importer"
	"github.com/piwi3910/PitPlan/internal/model"
	"github.com/piwi3910/PitPlan/internal/project"
)

const maxRecentProjects = 10

type analyzeOptions struct {
	points     string
	regions    string
	minZ, maxZ float64
	standoff   float64
	clearance  float64
}

type optimizeOptions struct {
	targetCount int
	targetGrade float64
	seed        uint32
	seedSet     bool
	preset      string
	mqttConfig  string
	remote      bool
	dryRun      bool
}

func loadAppConfig() model.AppConfig {
	cfg, err := project.LoadAppConfig(project.DefaultConfigPath())
	if err != nil {
		log.Printf("Warning: could not load app config, using defaults: %v", err)
		return model.DefaultAppConfig()
	}
	return cfg
}

// saveProject writes the project and records it in the recent list.
func saveProject(path string, p model.Project, cfg model.AppConfig) error {
	if err := project.SaveProject(path, p); err != nil {
		return err
	}
	if abs, err := filepath.Abs(path); err == nil {
		cfg.AddRecentProject(abs, maxRecentProjects)
		if err := project.SaveAppConfig(project.DefaultConfigPath(), cfg); err != nil {
			log.Printf("Warning: could not update recent projects: %v", err)
		}
	}
	return nil
}

// loadPoints imports a point file, choosing the reader by extension.
func loadPoints(path string) (model.PointSet, error) {
	var res importer.ImportResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		res = importer.ImportPointsExcel(path)
	default:
		res = importer.ImportPointsCSV(path)
	}
	printImportReport(path, res)
	if len(res.Points) == 0 {
		if len(res.Errors) > 0 {
			return model.PointSet{}, fmt.Errorf("loading points from %s: %s", path, res.Errors[0])
		}
		return model.PointSet{}, fmt.Errorf("loading points from %s: no points found", path)
	}
	id := path
	if abs, err := filepath.Abs(path); err == nil {
		id = abs
	}
	return model.PointSet{ID: id, Points: res.Points}, nil
}

// projectPoints loads the point file a project was analyzed against.
// Relative sources resolve against the project directory.
func projectPoints(projectPath string, p model.Project) (model.PointSet, error) {
	if p.PointSource == "" {
		return model.PointSet{}, fmt.Errorf("project %s has no point source; run analyze with --points", projectPath)
	}
	src := p.PointSource
	if !filepath.IsAbs(src) {
		src = filepath.Join(filepath.Dir(projectPath), src)
	}
	return loadPoints(src)
}

func loadProjectWithPoints(projectPath string) (model.Project, model.PointSet, error) {
	p, err := project.LoadProject(projectPath)
	if err != nil {
		return model.Project{}, model.PointSet{}, fmt.Errorf("loading project: %w", err)
	}
	set, err := projectPoints(projectPath, p)
	if err != nil {
		return model.Project{}, model.PointSet{}, err
	}
	reconcilePlan(&p, set.Points)
	return p, set, nil
}

// reconcilePlan refreshes region statistics from the loaded cloud and clamps
// the stored plan so no region gives up more points than it holds.
func reconcilePlan(p *model.Project, points []model.Point) {
	for i := range p.Regions {
		p.Regions[i].ApplyStats(geometry.ComputeRegionStats(p.Regions[i], points))
	}
	clamped := model.ClampPlanToRegions(p.Plan, p.Regions)
	for i := range clamped {
		if clamped[i].Quantity != p.Plan[i].Quantity {
			log.Printf("Warning: plan item %s on region %s clamped from %d to %d points",
				p.Plan[i].ID, p.Plan[i].RegionKey, p.Plan[i].Quantity, clamped[i].Quantity)
		}
	}
	p.Plan = clamped
}

func runAnalyze(projectPath string, opts analyzeOptions) error {
	cfg := loadAppConfig()

	p, err := project.LoadProject(projectPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading project: %w", err)
		}
		p = model.NewProject()
		cfg.ApplyToProject(&p)
		presets, perr := project.AllPresets(project.DefaultPresetsPath())
		if perr != nil {
			log.Printf("Warning: could not load presets: %v", perr)
			presets = model.BuiltInPresets()
		}
		p.Genetic = cfg.GeneticFor(presets)
		p.Name = strings.TrimSuffix(filepath.Base(projectPath), filepath.Ext(projectPath))
	}

	if opts.points != "" {
		abs, err := filepath.Abs(opts.points)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", opts.points, err)
		}
		p.PointSource = abs
	}
	if opts.regions != "" {
		res := importer.ImportRegionsDXF(opts.regions, opts.minZ, opts.maxZ)
		printImportReport(opts.regions, res)
		if len(res.Regions) == 0 {
			return fmt.Errorf("no regions imported from %s", opts.regions)
		}
		p.Regions = append(p.Regions, res.Regions...)
	}
	if len(p.Regions) == 0 {
		return fmt.Errorf("project has no regions; pass --regions")
	}
	if opts.standoff >= 0 {
		p.Feasibility.StandoffDistance = opts.standoff
	}
	if opts.clearance >= 0 {
		p.Feasibility.ClearanceRadius = opts.clearance
	}
	p.Feasibility = p.Feasibility.Normalize()

	set, err := projectPoints(projectPath, p)
	if err != nil {
		return err
	}
	analyzer := feasibility.NewAnalyzer(set, p.Feasibility, nil)
	p.Regions = analyzer.AnalyzeAll(p.Regions)

	if err := saveProject(projectPath, p, cfg); err != nil {
		return err
	}
	fmt.Printf("Analyzed %d regions against %d points (standoff %.2f, clearance %.2f)\n\n",
		len(p.Regions), len(set.Points), p.Feasibility.StandoffDistance, p.Feasibility.ClearanceRadius)
	printRegions(p.Regions)
	return nil
}

// resolveGenetic picks the optimizer parameters: a named preset if given,
// otherwise the project's own configuration.
func resolveGenetic(p model.Project, preset string) (model.GeneticConfig, error) {
	if preset == "" {
		return p.Genetic.Clamp(), nil
	}
	presets, err := project.AllPresets(project.DefaultPresetsPath())
	if err != nil {
		return model.GeneticConfig{}, fmt.Errorf("loading presets: %w", err)
	}
	found := model.FindPreset(presets, preset)
	if found == nil {
		return model.GeneticConfig{}, fmt.Errorf("unknown preset %q", preset)
	}
	return found.Config.Clamp(), nil
}

func runOptimize(ctx context.Context, projectPath string, opts optimizeOptions) error {
	p, set, err := loadProjectWithPoints(projectPath)
	if err != nil {
		return err
	}

	targets := p.Targets
	if opts.targetCount > 0 {
		targets.PointCount = opts.targetCount
	}
	if opts.targetGrade > 0 {
		targets.AverageGrade = opts.targetGrade
	}
	genetic, err := resolveGenetic(p, opts.preset)
	if err != nil {
		return err
	}

	req := executor.Request{
		Regions:            engine.RegionsFromModel(p.Regions, set.Points),
		TargetPointCount:   targets.PointCount,
		TargetAverageGrade: targets.AverageGrade,
		Config:             &genetic,
	}
	if opts.seedSet {
		seed := opts.seed
		req.Seed = &seed
	}

	var done executor.Message
	if opts.remote || opts.mqttConfig != "" {
		done, err = optimizeRemote(ctx, opts.mqttConfig, req)
	} else {
		done, err = optimizeLocal(ctx, req)
	}
	if err != nil {
		return err
	}
	result := *done.Result
	printResult(result, targets)

	if !result.Completed || len(result.Items) == 0 {
		return nil
	}
	outcome := engine.ComputePlanStats(p.Regions, result.Items, set.Points)
	fmt.Println()
	printOutcome(p, outcome)

	if opts.dryRun {
		return nil
	}
	p.Plan = result.Items
	p.Targets = targets
	if err := saveProject(projectPath, p, loadAppConfig()); err != nil {
		return err
	}
	fmt.Printf("\nSaved plan to %s\n", projectPath)
	return nil
}

// optimizeLocal runs the request on an in-process executor.
func optimizeLocal(ctx context.Context, req executor.Request) (executor.Message, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exec := executor.New(0)
	go func() {
		if err := exec.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[EXEC] %v", err)
		}
	}()

	client := executor.NewClient(executor.ChannelSender(exec.Inbox()))
	return client.Await(ctx, exec.Outbox(), req, printProgress)
}

// optimizeRemote sends the request to an executor reachable over MQTT.
func optimizeRemote(ctx context.Context, configPath string, req executor.Request) (executor.Message, error) {
	cfg, err := executor.LoadConfig(configPath)
	if err != nil {
		return executor.Message{}, err
	}
	mqttCfg := cfg.MQTT.CallerConfig()
	client, err := executor.Connect(mqttCfg)
	if err != nil {
		return executor.Message{}, err
	}
	defer client.Disconnect(250)

	remote, err := executor.NewRemote(client, mqttCfg)
	if err != nil {
		return executor.Message{}, err
	}
	defer remote.Close()

	c := executor.NewClient(remote)
	done, err := c.Await(ctx, remote.Replies(), req, printProgress)
	if err != nil && ctx.Err() != nil {
		// Tell the remote executor to stop working on the abandoned run
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if serr := c.Stop(stopCtx); serr != nil {
			log.Printf("[MQTT] %v", serr)
		}
	}
	return done, err
}

func runStats(projectPath string, asJSON bool) error {
	p, set, err := loadProjectWithPoints(projectPath)
	if err != nil {
		return err
	}
	outcome := engine.ComputePlanStats(p.Regions, p.Plan, set.Points)

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"outcome": outcome,
			"regions": engine.SummarizeRegions(p.Regions, outcome),
			"targets": p.Targets,
		})
	}
	printOutcome(p, outcome)
	return nil
}

func runCompare(ctx context.Context, projectPath string, seed uint32) error {
	p, set, err := loadProjectWithPoints(projectPath)
	if err != nil {
		return err
	}
	regions := engine.RegionsFromModel(p.Regions, set.Points)
	scenarios := engine.BuildDefaultScenarios(p.Genetic)

	fmt.Printf("Comparing %d scenarios (seed %d, target %d points at grade %.3f)\n\n",
		len(scenarios), seed, p.Targets.PointCount, p.Targets.AverageGrade)
	results := engine.CompareScenarios(ctx, scenarios, regions, p.Targets, &seed)
	printComparison(results, engine.BestScenario(results))
	if len(results) < len(scenarios) {
		return fmt.Errorf("comparison interrupted after %d of %d scenarios", len(results), len(scenarios))
	}
	return nil
}

var exportExtensions = map[string]string{
	"pdf":    ".pdf",
	"labels": "-labels.pdf",
	"xlsx":   ".xlsx",
	"svg":    ".svg",
	"png":    ".png",
	"dxf":    ".dxf",
}

func runExport(projectPath, format, output string, dpmm float64) error {
	format = strings.ToLower(format)
	ext, ok := exportExtensions[format]
	if !ok {
		return fmt.Errorf("unknown export format %q", format)
	}
	if output == "" {
		output = strings.TrimSuffix(projectPath, filepath.Ext(projectPath)) + ext
	}

	p, set, err := loadProjectWithPoints(projectPath)
	if err != nil {
		return err
	}
	outcome := engine.ComputePlanStats(p.Regions, p.Plan, set.Points)

	switch format {
	case "pdf":
		err = export.ExportPDF(output, p, outcome)
	case "labels":
		err = export.ExportLabels(output, p, outcome)
	case "xlsx":
		err = export.ExportXLSX(output, p, outcome)
	case "dxf":
		err = export.ExportDXF(output, p, outcome)
	case "svg", "png":
		err = writeImage(output, format, p, outcome, dpmm)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s\n", format, output)
	return nil
}

func writeImage(path, format string, p model.Project, outcome model.PlanOutcome, dpmm float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if format == "svg" {
		err = export.RenderPlanSVG(f, p, outcome)
	} else {
		err = export.RenderPlanPNG(f, p, outcome, dpmm)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	return err
}

func runPresets() error {
	presets, err := project.AllPresets(project.DefaultPresetsPath())
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	printPresets(presets, loadAppConfig().DefaultPreset)
	return nil
}

func runPresetSave(name, description, from string) error {
	genetic := loadAppConfig().DefaultGenetic
	if from != "" {
		p, err := project.LoadProject(from)
		if err != nil {
			return fmt.Errorf("loading project: %w", err)
		}
		genetic = p.Genetic
	}
	path := project.DefaultPresetsPath()
	custom, err := project.LoadPresets(path)
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	custom, err = project.UpsertPreset(custom, model.OptimizerPreset{Name: name, Description: description, Config: genetic})
	if err != nil {
		return err
	}
	if err := project.SavePresets(path, custom); err != nil {
		return fmt.Errorf("saving presets: %w", err)
	}
	fmt.Printf("Saved preset %q\n", name)
	return nil
}

func runPresetExport(name, path string) error {
	presets, err := project.AllPresets(project.DefaultPresetsPath())
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	found := model.FindPreset(presets, name)
	if found == nil {
		return fmt.Errorf("unknown preset %q", name)
	}
	if err := project.ExportPreset(path, *found); err != nil {
		return fmt.Errorf("exporting preset: %w", err)
	}
	fmt.Printf("Exported preset %q to %s\n", name, path)
	return nil
}

func runPresetImport(path string) error {
	preset, err := project.ImportPreset(path)
	if err != nil {
		return fmt.Errorf("importing preset: %w", err)
	}
	presetsPath := project.DefaultPresetsPath()
	custom, err := project.LoadPresets(presetsPath)
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	custom, err = project.UpsertPreset(custom, preset)
	if err != nil {
		return err
	}
	if err := project.SavePresets(presetsPath, custom); err != nil {
		return fmt.Errorf("saving presets: %w", err)
	}
	fmt.Printf("Imported preset %q\n", preset.Name)
	return nil
}

func runBackupExport(path string) error {
	cfg, err := project.LoadAppConfig(project.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	presets, err := project.LoadPresets(project.DefaultPresetsPath())
	if err != nil {
		return fmt.Errorf("loading presets: %w", err)
	}
	if err := project.WriteBackup(path, cfg, presets); err != nil {
		return err
	}
	fmt.Printf("Backed up settings and %d custom presets to %s\n", len(presets), path)
	return nil
}

func runBackupImport(path string) error {
	b, err := project.ReadBackup(path)
	if err != nil {
		return err
	}
	if err := project.RestoreBackup(b, project.DefaultConfigPath(), project.DefaultPresetsPath()); err != nil {
		return err
	}
	fmt.Printf("Restored settings and %d custom presets from %s (created %s)\n",
		len(b.Presets), path, b.CreatedAt.Format(time.RFC3339))
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := executor.LoadConfig(configPath)
	if err != nil {
		return err
	}
	client, err := executor.Connect(cfg.MQTT)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	exec := executor.New(cfg.Buffer)
	transport := executor.NewTransport(client, cfg.MQTT)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return exec.Run(ctx)
	})
	g.Go(func() error {
		return transport.Serve(ctx, exec)
	})

	err = g.Wait()
	log.Println("[EXEC] shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
