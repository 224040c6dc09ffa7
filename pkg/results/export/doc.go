// Package export writes stored run reports as JSON or CSV.
//
// The JSON exporter writes the whole report. The CSV exporter flattens it into
// one row per rule set and scope: per-dataset scores first, then the
// cumulative score of each rule set computed from its stored matrix.
//
//	exporter, err := export.New("csv", export.Options{IncludeHeader: true})
//	if err != nil {
//	    return err
//	}
//	err = exporter.Export(ctx, report, os.Stdout)
package export
