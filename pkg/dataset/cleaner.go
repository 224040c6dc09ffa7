package dataset

import (
	"context"
	"log/slog"
	"strings"
)

// DefaultIllegal is the marker of a missing value in raw datasets.
const DefaultIllegal = "?"

// CleanReport summarizes what Clean removed from one dataset.
type CleanReport struct {
	DataSet string
	Kept    int
	Dropped int
}

// Cleaner removes records that cannot be tested: a value count different from
// the metric vocabulary, an unknown classification, or a field containing the
// illegal marker.
type Cleaner struct {
	Metrics *Vocabulary
	Classes *Vocabulary
	Illegal string

	// Log enables a debug line for each dropped record.
	Log bool

	logger *slog.Logger
}

// NewCleaner creates a cleaner checking against the given vocabularies.
func NewCleaner(metrics, classes *Vocabulary, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default().With("component", "dataset.cleaner")
	}
	return &Cleaner{
		Metrics: metrics,
		Classes: classes,
		Illegal: DefaultIllegal,
		logger:  logger,
	}
}

// IsClean reports whether rec passes every check.
func (c *Cleaner) IsClean(rec Record) bool {
	if c.Metrics != nil && len(rec.Values) != c.Metrics.Len() {
		return false
	}
	if c.Classes != nil && !c.Classes.Contains(rec.Class) {
		return false
	}
	if c.Illegal == "" {
		return true
	}
	if strings.Contains(rec.Class, c.Illegal) {
		return false
	}
	for _, v := range rec.Values {
		if strings.Contains(v, c.Illegal) {
			return false
		}
	}
	return true
}

// Clean drops unclean records from ds in place.
func (c *Cleaner) Clean(ds *DataSet) CleanReport {
	kept := ds.Records[:0]
	dropped := 0
	for _, rec := range ds.Records {
		if c.IsClean(rec) {
			kept = append(kept, rec)
			continue
		}
		dropped++
		if c.Log {
			c.logger.Debug("dropped record", "dataset", ds.Name, "record", rec.String())
		}
	}
	ds.Records = kept

	return CleanReport{DataSet: ds.Name, Kept: len(kept), Dropped: dropped}
}

// CleanAll cleans every dataset and returns one report per dataset.
func (c *Cleaner) CleanAll(ctx context.Context, sets []*DataSet) ([]CleanReport, error) {
	reports := make([]CleanReport, 0, len(sets))
	for _, ds := range sets {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report := c.Clean(ds)
		if report.Dropped > 0 {
			c.logger.Info("cleaned dataset",
				"dataset", report.DataSet,
				"kept", report.Kept,
				"dropped", report.Dropped,
			)
		}
		reports = append(reports, report)
	}
	return reports, nil
}
