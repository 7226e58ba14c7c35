package store

import "github.com/amishk599/jobwatch/internal/model"

// NopStore is a no-op store used in dry-run mode. Every insert looks new and
// nothing is kept.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) Insert(model.AnalysisResult) (model.InsertOutcome, error) {
	return model.Inserted, nil
}
func (s *NopStore) Get(string) (model.AnalysisResult, bool, error) {
	return model.AnalysisResult{}, false, nil
}
func (s *NopStore) List() ([]model.AnalysisResult, error)   { return nil, nil }
func (s *NopStore) SetApplied(string, bool) error             { return nil }
func (s *NopStore) SetApplicationResult(string, string) error { return nil }
