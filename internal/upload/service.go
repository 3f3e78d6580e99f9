package upload

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/videoproc/pkg/processor"
	"github.com/your-org/videoproc/pkg/storage/objectstore"
	"github.com/your-org/videoproc/pkg/tracing"
)

const tracerName = "github.com/your-org/videoproc/internal/upload"

// EventPublisher delivers processing events. *kafka.Producer satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, value any, headers map[string]string) error
	Close() error
}

// UploadedFile is one received file part. TempPath is empty when nothing
// was spooled to disk.
type UploadedFile struct {
	OriginalName string
	TempPath     string
	Size         int64
	Error        ErrorCode
}

// Report describes how far a request got. It is rendered into the result
// page whether or not Err is set.
type Report struct {
	ID         string
	Upload     UploadedFile
	FileName   string
	TargetPath string
	OutputPath string
	Stored     bool
	Ran        bool
	Result     processor.Result
	Err        error
}

// Succeeded reports whether the upload was stored and processed.
func (r *Report) Succeeded() bool {
	return r.Err == nil && r.Ran && r.Result.Succeeded()
}

// Service persists uploads and drives the external processor.
type Service struct {
	uploadDir    string
	processedDir string
	runner       processor.Runner
	archive      objectstore.Client
	events       EventPublisher
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

type Params struct {
	UploadDir    string
	ProcessedDir string
	Runner       processor.Runner
	// Archive and Events are optional.
	Archive objectstore.Client
	Events  EventPublisher
	Logger  *zap.Logger
}

// NewService constructs an upload Service.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		uploadDir:    p.UploadDir,
		processedDir: p.ProcessedDir,
		runner:       p.Runner,
		archive:      p.Archive,
		events:       p.Events,
		logger:       logger,
		tracer:       tracing.Tracer(tracerName),
		now:          time.Now,
	}
}

// Handle validates, stores and processes a single upload. It never returns
// early without a Report; the first failure is recorded in Report.Err and
// stops the pipeline. A stored upload is left in place when processing fails.
func (s *Service) Handle(ctx context.Context, up UploadedFile) *Report {
	rep := &Report{ID: uuid.NewString(), Upload: up}
	logger := s.logger.With(zap.String("upload_id", rep.ID), zap.String("original_name", up.OriginalName))

	if name, ok := SanitizeBaseName(up.OriginalName); ok {
		rep.FileName = name
		rep.TargetPath = filepath.Join(s.uploadDir, name)
		rep.OutputPath = filepath.Join(s.processedDir, ProcessedName(name))
	}

	if up.Error != CodeOK {
		s.discard(up, logger)
		rep.Err = &Error{Kind: KindUploadTransport, Code: up.Error}
		return rep
	}

	if err := s.checkUploadDir(); err != nil {
		s.discard(up, logger)
		rep.Err = err
		return rep
	}

	if err := s.persist(ctx, rep); err != nil {
		s.discard(up, logger)
		rep.Err = err
		return rep
	}
	rep.Stored = true
	logger.Info("upload stored", zap.String("target_path", rep.TargetPath), zap.Int64("size_bytes", up.Size))

	started := s.now()
	res, err := s.process(ctx, rep)
	rep.Ran = true
	rep.Result = res
	elapsed := s.now().Sub(started)
	switch {
	case err != nil:
		logger.Error("processor could not run", zap.Error(err))
		rep.Err = &Error{Kind: KindProcessing, Err: err}
	case !res.Succeeded():
		logger.Warn("processor failed", zap.Int("exit_code", res.ExitCode), zap.Duration("elapsed", elapsed))
		rep.Err = &Error{Kind: KindProcessing, Err: fmt.Errorf("processor exited with status %d", res.ExitCode)}
	default:
		logger.Info("processor finished", zap.String("output_path", rep.OutputPath), zap.Duration("elapsed", elapsed))
	}

	var archivedKey string
	if rep.Succeeded() {
		archivedKey = s.archiveOutput(ctx, rep, logger)
	}
	s.publish(ctx, rep, archivedKey, elapsed, logger)

	return rep
}

// Close releases the optional archive and event clients.
func (s *Service) Close() error {
	var errs []error
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.archive != nil {
		errs = append(errs, s.archive.Close())
	}
	return errors.Join(errs...)
}

func (s *Service) checkUploadDir() error {
	info, err := os.Stat(s.uploadDir)
	if err != nil {
		return &Error{Kind: KindDirectoryMissing, Err: err}
	}
	if !info.IsDir() {
		return &Error{Kind: KindDirectoryMissing, Err: fmt.Errorf("%s is not a directory", s.uploadDir)}
	}
	return nil
}

func (s *Service) persist(ctx context.Context, rep *Report) error {
	_, span := s.tracer.Start(ctx, "upload.persist")
	defer span.End()

	if rep.FileName == "" {
		err := &Error{Kind: KindPersist, Err: fmt.Errorf("unusable file name %q", rep.Upload.OriginalName)}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !within(s.uploadDir, rep.TargetPath) {
		err := &Error{Kind: KindPersist, Err: fmt.Errorf("target %q escapes upload directory", rep.TargetPath)}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.String("upload.target_path", rep.TargetPath))

	if rep.Upload.TempPath == "" {
		err := &Error{Kind: KindPersist, Err: errors.New("no temporary file")}
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := os.Rename(rep.Upload.TempPath, rep.TargetPath); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rename failed")
		return &Error{Kind: KindPersist, Err: fmt.Errorf("move upload: %w", err)}
	}
	return nil
}

func (s *Service) process(ctx context.Context, rep *Report) (processor.Result, error) {
	ctx, span := s.tracer.Start(ctx, "upload.process", trace.WithAttributes(
		attribute.String("upload.source_path", rep.TargetPath),
		attribute.String("upload.output_path", rep.OutputPath),
	))
	defer span.End()

	res, err := s.runner.Run(ctx, rep.TargetPath, rep.OutputPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processor did not run")
		return res, err
	}
	span.SetAttributes(attribute.Int("process.exit_code", res.ExitCode))
	if !res.Succeeded() {
		span.SetStatus(codes.Error, "processor failed")
	}
	return res, nil
}

func (s *Service) archiveOutput(ctx context.Context, rep *Report, logger *zap.Logger) string {
	if s.archive == nil {
		return ""
	}
	ctx, span := s.tracer.Start(ctx, "upload.archive")
	defer span.End()

	key := ArchiveKey(s.now(), ProcessedName(rep.FileName))
	contentType := mime.TypeByExtension(filepath.Ext(rep.FileName))
	metadata := map[string]string{
		"upload_id":         rep.ID,
		"original_filename": rep.FileName,
	}
	if err := s.archive.PutFile(ctx, key, rep.OutputPath, contentType, metadata); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "archive failed")
		logger.Error("archive processed output", zap.String("key", key), zap.Error(err))
		return ""
	}
	span.SetAttributes(attribute.String("archive.key", key))
	return key
}

func (s *Service) publish(ctx context.Context, rep *Report, archivedKey string, elapsed time.Duration, logger *zap.Logger) {
	if s.events == nil {
		return
	}
	ctx, span := s.tracer.Start(ctx, "upload.publish")
	defer span.End()

	event := ProcessingEvent{
		ID:          rep.ID,
		Filename:    rep.FileName,
		TargetPath:  rep.TargetPath,
		OutputPath:  rep.OutputPath,
		ExitCode:    rep.Result.ExitCode,
		Succeeded:   rep.Succeeded(),
		ArchivedKey: archivedKey,
		DurationMS:  elapsed.Milliseconds(),
		CreatedAt:   s.now().UTC(),
	}
	headers := map[string]string{
		"upload_id":  rep.ID,
		"event_type": event.Type(),
	}
	if err := s.events.PublishJSON(ctx, rep.FileName, event, headers); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		logger.Error("publish processing event", zap.Error(err))
	}
}

func (s *Service) discard(up UploadedFile, logger *zap.Logger) {
	if up.TempPath == "" {
		return
	}
	if err := os.Remove(up.TempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove temp upload", zap.String("temp_path", up.TempPath), zap.Error(err))
	}
}

// ArchiveKey is the object key a processed output is archived under.
func ArchiveKey(at time.Time, name string) string {
	return fmt.Sprintf("processed/%s/%s", at.UTC().Format("2006/01/02"), name)
}

func within(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
