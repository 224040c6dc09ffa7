// Package dataset provides the labelled data that rule sets are tested against.
//
// A DataSet is an ordered, re-iterable list of records. Each Record carries the
// metric values of one case, in the column order of the metric Vocabulary, and
// the actual classification of that case.
//
// # Vocabularies
//
// Two vocabularies describe a run:
//
//   - the metric vocabulary names each value column of a record
//   - the classification vocabulary lists the known labels; its order defines
//     the row and column order of every confusion matrix
//
// Vocabularies load from plain text (one label per line, '#' comments) or from a
// YAML list:
//
//	classes, err := dataset.LoadVocabulary("classes.txt")
//
// # Loading
//
// Datasets are CSV files with the classification in the last column:
//
//	reader := dataset.NewReader(dataset.DefaultReaderConfig())
//	ds, err := reader.ReadFile("data/fold1.csv")
//
// A Loader reads a whole directory on a bounded worker pool, keeping the
// datasets in file-name order.
//
// # Cleaning and Organizing
//
// The Cleaner drops records with the wrong number of values, an unknown
// classification or an illegal character. The Organizer rewrites datasets as
// CSV grouped by classification.
package dataset
