// Package batch converts whole directories of probe descriptions with a
// worker pool. Each probe is independent; one probe's failure never
// stops the rest.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"pinpoint-converter/internal/assemble"
	"pinpoint-converter/internal/pinpoint"
	"pinpoint-converter/internal/sitecsv"
	"pinpoint-converter/internal/spikeif"
	"pinpoint-converter/internal/stl"
)

// Config holds the shared resources for a batch run.
type Config struct {
	OutputDir string
	Assembler *assemble.Assembler
	Workers   int
	Validate  bool
	Log       *zap.SugaredLogger
}

// Job is one probe's input files. ElectrodeCSV and STLFile are optional.
type Job struct {
	ProbeJSON    string
	ElectrodeCSV string
	STLFile      string
}

// Result holds the outcome of converting one probe.
type Result struct {
	Name    string `json:"name"`
	Folder  string `json:"folder,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DiscoverJobs lists probe JSON files under inputDir/spikeinterface and
// pairs each with same-stem files in sibling csv/ and stl/ directories.
func DiscoverJobs(inputDir string) ([]Job, error) {
	pattern := filepath.Join(inputDir, "spikeinterface", "*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("batch: glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("batch: no probe files match %s", pattern)
	}
	sort.Strings(matches)

	jobs := make([]Job, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		job := Job{ProbeJSON: m}
		if p := filepath.Join(inputDir, "csv", name+".csv"); exists(p) {
			job.ElectrodeCSV = p
		}
		if p := filepath.Join(inputDir, "stl", name+".stl"); exists(p) {
			job.STLFile = p
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Run converts all jobs using a worker pool and reports per-job results
// in job order.
func Run(cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	var processed atomic.Int64

	start := time.Now()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					elapsed := time.Since(start).Seconds()
					cfg.Log.Infof("progress: %d/%d (%.1f probes/sec)", p, total, float64(p)/elapsed)
				}
			}
		}
	}()

	jobChan := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup

	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = ConvertOne(cfg, jobs[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)

	wg.Wait()
	close(done)

	return results
}

// ConvertOne runs the full pipeline for a single probe: parse inputs,
// assemble the geometry bundle, persist the output folder.
func ConvertOne(cfg Config, job Job) Result {
	name := strings.TrimSuffix(filepath.Base(job.ProbeJSON), filepath.Ext(job.ProbeJSON))

	src, err := spikeif.ParseFile(job.ProbeJSON)
	if err != nil {
		return Result{Name: name, Error: err.Error()}
	}

	if job.ElectrodeCSV != "" {
		rows, err := sitecsv.ParseFile(job.ElectrodeCSV)
		if err != nil {
			return Result{Name: name, Error: err.Error()}
		}
		switch {
		case src.Single != nil:
			src.Single.Electrodes = sitecsv.Merge(src.Single.Electrodes, rows)
		case src.Group != nil:
			src.Group.Electrodes = sitecsv.Merge(src.Group.Electrodes, rows)
		}
	}

	if job.STLFile != "" && src.Single != nil {
		model, err := stl.ParseFile(job.STLFile)
		if err != nil {
			return Result{Name: name, Error: err.Error()}
		}
		src.Single.Model = &model
	}

	bundle, err := cfg.Assembler.Convert(src)
	if err != nil {
		return Result{Name: name, Error: err.Error()}
	}

	folder, err := pinpoint.Write(cfg.OutputDir, bundle)
	if err != nil {
		return Result{Name: bundle.Name, Error: err.Error()}
	}

	if cfg.Validate {
		rep, err := pinpoint.Validate(folder)
		if err != nil {
			return Result{Name: bundle.Name, Folder: folder, Error: err.Error()}
		}
		if !rep.Valid() {
			return Result{Name: bundle.Name, Folder: folder, Error: strings.Join(rep.Errors, "; ")}
		}
		for _, w := range rep.Warnings {
			cfg.Log.Warnw("validation", "probe", bundle.Name, "warning", w)
		}
	}

	return Result{Name: bundle.Name, Folder: folder, Success: true}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
