package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"framefolio/internal/database"
	"framefolio/internal/ingest"
	"framefolio/internal/logging"
	"framefolio/internal/media"
)

const (
	defaultDatabaseDir = "/data"
	pollInterval       = 250 * time.Millisecond
	// maxResolveRounds bounds the policy loop. A duplicate that is imported
	// can come back once more for positioning, so two rounds suffice.
	maxResolveRounds = 4
)

type options struct {
	dbPath        string
	folder        string
	staging       string
	workers       int
	onDuplicate   string
	onPositioning string
	vips          bool
	paths         []string
}

type result struct {
	JobID    string
	Snapshot ingest.JobSnapshot
	Ignored  int
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout))
}

// execute runs the importer and returns the process exit code. Deferred
// cleanup, libvips shutdown included, runs before main exits.
func execute(args []string, stdout *os.File) int {
	opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted, waiting for in-flight files...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.vips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using pure Go export: %v", err)
		}
		defer media.ShutdownVips()
	}

	res, err := run(ctx, opts, newProgress(stdout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	printSummary(stdout, res)
	if res.Snapshot.Status == ingest.JobError || len(res.Snapshot.Errors) > 0 {
		return 1
	}
	return 0
}

func parseFlags(args []string) (options, error) {
	databaseDir := os.Getenv("DATABASE_DIR")
	if databaseDir == "" {
		databaseDir = defaultDatabaseDir
	}

	var opts options
	var verbose bool
	fset := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fset.StringVar(&opts.dbPath, "db", filepath.Join(databaseDir, "framefolio.db"), "SQLite record store")
	fset.StringVar(&opts.folder, "folder", os.Getenv("LIBRARY_DIR"), "library folder to import into")
	fset.StringVar(&opts.staging, "staging", "", "staging directory (default: <db dir>/_staging)")
	fset.IntVar(&opts.workers, "workers", 0, "concurrent file workers (0 = auto)")
	fset.StringVar(&opts.onDuplicate, "on-duplicate", string(ingest.ActionSkip), "skip, overwrite or import_anyway")
	fset.StringVar(&opts.onPositioning, "on-positioning", "skip", "skip or center")
	fset.BoolVar(&opts.vips, "vips", true, "use libvips for derivative export when available")
	fset.BoolVar(&verbose, "v", false, "debug logging")
	fset.Usage = func() {
		fmt.Fprintln(fset.Output(), "Usage: ingest [flags] <file or directory>...")
		fmt.Fprintln(fset.Output(), "")
		fset.PrintDefaults()
	}

	if err := fset.Parse(args); err != nil {
		return options{}, err
	}
	opts.paths = fset.Args()

	if verbose {
		logging.SetLevel(logging.LevelDebug)
	} else {
		logging.SetLevel(logging.LevelWarn)
	}

	if len(opts.paths) == 0 {
		return options{}, errors.New("no input files or directories given")
	}
	if opts.folder == "" {
		return options{}, errors.New("-folder is required")
	}
	if _, err := ingest.ParseDuplicateAction(opts.onDuplicate); err != nil {
		return options{}, err
	}
	if opts.onPositioning != "skip" && opts.onPositioning != "center" {
		return options{}, fmt.Errorf("unknown -on-positioning %q (want skip or center)", opts.onPositioning)
	}
	if opts.staging == "" {
		opts.staging = filepath.Join(filepath.Dir(opts.dbPath), "_staging")
	}
	return opts, nil
}

// run imports every accepted image under opts.paths into opts.folder and
// applies the duplicate and positioning policies to whatever is left waiting.
func run(ctx context.Context, opts options, prog *progress) (result, error) {
	files, ignored, err := collectFiles(opts.paths)
	if err != nil {
		return result{}, err
	}
	if len(files) == 0 {
		return result{Ignored: ignored}, errors.New("no supported images found")
	}

	folderPath, err := filepath.Abs(opts.folder)
	if err != nil {
		return result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.dbPath), 0o755); err != nil {
		return result{}, err
	}

	db, err := database.New(ctx, opts.dbPath)
	if err != nil {
		return result{}, fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		}
	}()

	folder, err := db.AddFolder(ctx, folderPath)
	if err != nil {
		return result{}, fmt.Errorf("register folder: %w", err)
	}

	tracker, err := ingest.NewTracker(ingest.Config{
		Store:       db,
		Codec:       media.Codec{},
		Transformer: media.NewTransformer(),
		StagingDir:  opts.staging,
		Workers:     opts.workers,
	})
	if err != nil {
		return result{}, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = tracker.Shutdown(shutdownCtx)
	}()

	jobID, err := submit(ctx, tracker, files, folder.ID)
	if err != nil {
		return result{JobID: jobID}, err
	}

	snap, err := watch(ctx, tracker, jobID, prog)
	if err != nil {
		return result{JobID: jobID, Snapshot: snap}, err
	}

	for round := 0; round < maxResolveRounds && snap.Status == ingest.JobWaitingForUserAction; round++ {
		if err := applyPolicies(ctx, tracker, snap, opts); err != nil {
			return result{JobID: jobID, Snapshot: snap}, err
		}
		if snap, err = tracker.Status(jobID); err != nil {
			return result{JobID: jobID}, err
		}
		prog.update(snap)
	}
	prog.finish()

	return result{JobID: jobID, Snapshot: snap, Ignored: ignored}, nil
}

// collectFiles expands directories recursively, skipping derivative folders
// and anything the pipeline would reject by extension.
func collectFiles(paths []string) (files []string, ignored int, err error) {
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, 0, err
		}
		if !info.IsDir() {
			if media.IsAccepted(p) {
				files = append(files, p)
			} else {
				ignored++
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if d.Name() == media.ExportDirName || (path != p && strings.HasPrefix(d.Name(), ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if media.IsAccepted(path) {
				files = append(files, path)
			} else {
				ignored++
			}
			return nil
		})
		if err != nil {
			return nil, 0, err
		}
	}
	return files, ignored, nil
}

func submit(ctx context.Context, tracker *ingest.Tracker, files []string, folderID int64) (string, error) {
	uploads := make([]ingest.Upload, 0, len(files))
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		opened = append(opened, f)
		uploads = append(uploads, ingest.Upload{Filename: filepath.Base(path), Body: f})
	}
	return tracker.Submit(ctx, uploads, folderID)
}

// watch polls the job until its automatic pass is over.
func watch(ctx context.Context, tracker *ingest.Tracker, jobID string, prog *progress) (ingest.JobSnapshot, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		snap, err := tracker.Status(jobID)
		if err != nil {
			return snap, err
		}
		prog.update(snap)
		if snap.Status != ingest.JobProcessing {
			return snap, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

func applyPolicies(ctx context.Context, tracker *ingest.Tracker, snap ingest.JobSnapshot, opts options) error {
	for _, f := range snap.Files {
		var err error
		switch f.Status {
		case ingest.StatusDuplicateDetected:
			_, err = tracker.ResolveDuplicate(ctx, snap.ID, f.Filename, opts.onDuplicate)
		case ingest.StatusNeedsPositioning:
			_, err = tracker.ResolvePositioning(ctx, snap.ID, f.Filename, positioningFor(f, opts.onPositioning))
		default:
			continue
		}
		// Per-file failures are recorded on the job; only a cancelled run stops here.
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Warn("Resolving %s: %v", f.Filename, err)
		}
	}
	return nil
}

// positioningFor maps the -on-positioning policy to a decision. "center"
// takes the largest centred 16:9 region.
func positioningFor(f ingest.FileResult, policy string) ingest.Positioning {
	if policy != "center" || f.Geometry == nil || f.Geometry.Width == 0 || f.Geometry.Height == 0 {
		return ingest.Positioning{Skip: true}
	}
	w, h := float64(f.Geometry.Width), float64(f.Geometry.Height)
	px := media.AutoCropRect(f.Geometry.Width, f.Geometry.Height)
	return ingest.Positioning{Crop: &media.NormRect{
		X: float64(px.X) / w,
		Y: float64(px.Y) / h,
		W: float64(px.W) / w,
		H: float64(px.H) / h,
	}}
}

func printSummary(w io.Writer, res result) {
	counts := make(map[ingest.FileStatus]int)
	for _, f := range res.Snapshot.Files {
		counts[f.Status]++
	}

	fmt.Fprintf(w, "Job %s: %s\n", res.JobID, res.Snapshot.Status)
	for _, status := range []ingest.FileStatus{
		ingest.StatusSuccess,
		ingest.StatusSkipped,
		ingest.StatusPortraitRejected,
		ingest.StatusDuplicateDetected,
		ingest.StatusNeedsPositioning,
		ingest.StatusFailed,
	} {
		if n := counts[status]; n > 0 {
			fmt.Fprintf(w, "  %-20s %d\n", status, n)
		}
	}
	if res.Ignored > 0 {
		fmt.Fprintf(w, "  %-20s %d\n", "ignored", res.Ignored)
	}
	for _, e := range res.Snapshot.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
}

// progress renders job progress. On a terminal it redraws a single line;
// otherwise it prints a line whenever the percentage changes.
type progress struct {
	w     io.Writer
	tty   bool
	width int
	last  int
	drawn bool
}

func newProgress(f *os.File) *progress {
	p := &progress{w: f, last: -1, width: 80}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		p.tty = true
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

func (p *progress) update(snap ingest.JobSnapshot) {
	if p == nil || p.w == nil {
		return
	}
	if !p.tty && snap.Progress == p.last {
		return
	}
	p.last = snap.Progress

	done := 0
	for _, f := range snap.Files {
		if f.Status.Terminal() {
			done++
		}
	}
	line := fmt.Sprintf("%3d%% %s %d/%d files (%s)", snap.Progress, bar(snap.Progress, 20), done, snap.TotalFiles, snap.Status)

	if p.tty {
		if len(line) > p.width-1 {
			line = line[:p.width-1]
		}
		fmt.Fprintf(p.w, "\r\033[K%s", line)
		p.drawn = true
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *progress) finish() {
	if p != nil && p.tty && p.drawn {
		fmt.Fprintln(p.w)
	}
}

func bar(percent, width int) string {
	filled := percent * width / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
