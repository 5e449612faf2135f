// Package pipeline renders batches of DICOM files concurrently and writes
// the results.
package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"dicomrender/internal/models"
	"dicomrender/pkg/dicomio"
	"dicomrender/pkg/render"
	"dicomrender/pkg/store"
	"dicomrender/pkg/visualization"
)

// Params holds the batch rendering parameters
type Params struct {
	// Inputs are DICOM files or directories. Directories are searched
	// (non-recursively) for files with a .dcm extension.
	Inputs []string

	// OutputDir is where rendered images are written. Empty disables output
	// and leaves results in the store only.
	OutputDir string

	// NumCores is the number of files rendered concurrently
	NumCores int

	// FrameIndex selects the frame rendered from multi-frame objects
	FrameIndex int

	// Override, when set, replaces the window stored in each file
	Override *render.Window

	// Encoder controls PNG compression
	Encoder render.Encoder

	// Thumbnail is the longest edge of preview images; 0 disables them
	Thumbnail int

	// WriteSidecars writes a YAML metadata file next to each image
	WriteSidecars bool

	// Verbose logs per-file statistics
	Verbose bool

	// Logger receives progress and warnings; nil uses log.Default()
	Logger *log.Logger
}

// Failure records a file that could not be rendered
type Failure struct {
	Path string
	Err  error
}

// Report summarises one Process call
type Report struct {
	// Rendered lists the store keys of successfully rendered files, sorted
	Rendered []string

	// Failed lists files that could not be rendered, in input order
	Failed []Failure
}

// Processor renders DICOM files into a payload store
type Processor struct {
	params *Params
	store  store.Store[models.ImagePayload]
	logger *log.Logger

	// decode reads one file; replaced in tests
	decode func(path string, opts ...dicomio.Option) (*dicomio.Frame, error)
}

// NewProcessor creates a processor writing payloads into s
func NewProcessor(params *Params, s store.Store[models.ImagePayload]) *Processor {
	logger := params.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		params: params,
		store:  s,
		logger: logger,
		decode: dicomio.DecodeFile,
	}
}

// job is one file to render together with the store key reserved for it
type job struct {
	index int
	path  string
	id    string
}

type result struct {
	job     job
	payload models.ImagePayload
	img     *image.Gray
	err     error
}

// Process renders every input file. Failures of individual files are
// collected in the report; only context cancellation or an unreadable input
// list aborts the run.
func (p *Processor) Process(ctx context.Context) (Report, error) {
	paths, err := expandInputs(p.params.Inputs)
	if err != nil {
		return Report{}, err
	}
	if len(paths) == 0 {
		return Report{}, fmt.Errorf("no DICOM files found in inputs")
	}

	workers := p.params.NumCores
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	ids := assignIDs(paths)
	jobs := make(chan job)
	results := make(chan result)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				payload, img, err := p.renderFile(j)
				select {
				case results <- result{job: j, payload: payload, img: img, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	// Dispatch jobs until done or cancelled
	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case jobs <- job{index: i, path: path, id: ids[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var report Report
	failed := make(map[int]Failure)
	completed := 0

	for res := range results {
		completed++

		if res.err != nil {
			p.logger.Printf("Warning: failed to render %s: %v", res.job.path, res.err)
			failed[res.job.index] = Failure{Path: res.job.path, Err: res.err}
			continue
		}

		p.store.Put(res.job.id, res.payload)
		if err := p.writeOutputs(res.job.id, res.img); err != nil {
			p.store.Delete(res.job.id)
			p.logger.Printf("Warning: failed to write outputs for %s: %v", res.job.path, err)
			failed[res.job.index] = Failure{Path: res.job.path, Err: err}
			continue
		}
		report.Rendered = append(report.Rendered, res.job.id)

		if p.params.Verbose {
			s := res.payload.Stats
			p.logger.Printf("[%d/%d] %s: %dx%d mean=%.1f std=%.1f entropy=%.2f bits",
				completed, len(paths), res.job.id, res.payload.Meta.Columns, res.payload.Meta.Rows,
				s.Mean, s.StdDev, s.Entropy)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}

	sort.Strings(report.Rendered)
	indices := make([]int, 0, len(failed))
	for i := range failed {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		report.Failed = append(report.Failed, failed[i])
	}

	return report, nil
}

// renderFile decodes and renders one file into a payload
func (p *Processor) renderFile(j job) (models.ImagePayload, *image.Gray, error) {
	frame, err := p.decode(j.path,
		dicomio.WithFrame(p.params.FrameIndex),
		dicomio.WithLogger(p.logger))
	if err != nil {
		return models.ImagePayload{}, nil, fmt.Errorf("decoding: %w", err)
	}

	window := frame.Window
	if p.params.Override != nil {
		window = p.params.Override
	}

	img, err := render.Render(frame.Pixels, window, frame.Polarity)
	if err != nil {
		return models.ImagePayload{}, nil, fmt.Errorf("rendering: %w", err)
	}

	data, err := p.params.Encoder.Encode(img)
	if err != nil {
		return models.ImagePayload{}, nil, err
	}

	payload := models.ImagePayload{
		ID:      j.id,
		Source:  j.path,
		PNGData: base64.StdEncoding.EncodeToString(data),
		Meta:    frame.Meta,
		Stats:   render.Summarize(img),
	}
	if window.Usable() {
		payload.Window = window
	}

	return payload, img, nil
}

// writeOutputs saves the stored image for id, its preview and its sidecar.
// img is only used to build the preview.
func (p *Processor) writeOutputs(id string, img *image.Gray) error {
	if p.params.OutputDir == "" {
		return nil
	}

	payload, ok := p.store.Get(id)
	if !ok {
		return fmt.Errorf("payload %s missing from store", id)
	}
	base := filepath.Join(p.params.OutputDir, id)

	if err := visualization.SavePayload(payload, base+".png"); err != nil {
		return err
	}

	if p.params.Thumbnail > 0 {
		viewer := visualization.NewViewer(img, p.params.Encoder)
		if err := viewer.SaveThumbnail(p.params.Thumbnail, base+"_thumb.png"); err != nil {
			return err
		}
	}

	if p.params.WriteSidecars {
		if err := visualization.SaveSidecar(payload, base+".yaml"); err != nil {
			return err
		}
	}

	return nil
}

// expandInputs resolves directories to the .dcm files they contain.
// Files named explicitly are kept whatever their extension.
func expandInputs(inputs []string) ([]string, error) {
	var paths []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			paths = append(paths, input)
			continue
		}

		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, err
		}

		var found []string
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
				continue
			}
			found = append(found, filepath.Join(input, e.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// assignIDs derives a store key per path from its base name, adding a
// numeric suffix when two inputs share a name
func assignIDs(paths []string) []string {
	ids := make([]string, len(paths))
	taken := make(map[string]bool)

	for i, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		id := base
		for n := 1; taken[id]; n++ {
			id = base + "_" + strconv.Itoa(n)
		}
		taken[id] = true
		ids[i] = id
	}
	return ids
}
