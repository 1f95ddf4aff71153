// internal/workers/dashboard/export-csv/handler.go
package exportcsv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"cpq-console/internal/common/camunda"
	"cpq-console/internal/common/errors"
	"cpq-console/internal/common/logger"
	"cpq-console/internal/common/metrics"
	"cpq-console/internal/dashboard"
)

const TaskType = "dashboard.export.csv"

type Handler struct {
	config  *Config
	sources map[string]Source
	errors  *errors.ErrorHandler
	clock   func() time.Time
	logger  logger.Logger
}

type HandlerOptions struct {
	Config *Config
	// Sources are keyed by collection name, e.g. "catalogs".
	Sources map[string]Source
	Clock   func() time.Time
	Logger  logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: create export dir: %w", TaskType, err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	return &Handler{
		config:  cfg,
		sources: opts.Sources,
		errors:  errors.NewErrorHandler(log),
		clock:   clock,
		logger:  log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return h.fail(ctx, client, job, errors.NewValidationFailedError("parse job variables: "+err.Error(), nil))
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		return h.fail(ctx, client, job, err)
	}
	return camunda.Complete(ctx, client, job, output)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
	return nil
}

// Collections lists the exportable collection names.
func (h *Handler) Collections() []string {
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute writes the export into the export directory. A partial file is
// removed when writing fails.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	src, ok := h.sources[input.Collection]
	if !ok {
		return nil, errors.NewValidationFailedError("unknown collection", map[string]string{
			"collection": "must be one of " + strings.Join(h.Collections(), ", "),
		})
	}

	fields := input.Fields
	if len(fields) == 0 {
		fields = h.config.DefaultFields
	}
	q := dashboard.Query{Search: input.Search, Filters: url.Values{}, SortBy: input.SortBy, Desc: input.Desc}
	for k, v := range input.Filters {
		q.Filters.Set(k, v)
	}

	pattern := fmt.Sprintf("%s-%s-*.csv", input.Collection, h.clock().UTC().Format("20060102T150405"))
	f, err := os.CreateTemp(h.config.ExportDir, pattern)
	if err != nil {
		return nil, errors.NewExportFailedError("csv", err)
	}
	path := f.Name()

	rows, err := src.WriteCSV(ctx, q, dashboard.Columns(fields...), f)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if _, ok := errors.As(err); ok {
			return nil, err
		}
		return nil, errors.NewExportFailedError("csv", err)
	}

	metrics.Exports.WithLabelValues("csv", input.Collection).Inc()
	h.logger.Info("CSV export written", map[string]interface{}{
		"collection": input.Collection,
		"rows":       rows,
		"path":       filepath.Base(path),
	})
	return &Output{Collection: input.Collection, Path: path, Rows: rows}, nil
}
