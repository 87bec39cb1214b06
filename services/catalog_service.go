package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"offScreenAPI/internal/apperr"
	"offScreenAPI/internal/logger"
	"offScreenAPI/internal/store"
	"offScreenAPI/internal/types/challenge"
)

type CatalogService struct {
	store store.Store
	log   *logger.Logger
}

func NewCatalogService(st store.Store, log *logger.Logger) *CatalogService {
	return &CatalogService{store: st, log: log.With("service", "CatalogService")}
}

// catalogFile is the YAML layout accepted by ImportTemplates:
//
//	challenges:
//	  - type: daily
//	    difficulty: 2
//	    description: Read twenty pages of a paper book
type catalogFile struct {
	Challenges []catalogEntry `yaml:"challenges"`
}

type catalogEntry struct {
	Type        string  `yaml:"type"`
	Difficulty  int     `yaml:"difficulty"`
	Description string  `yaml:"description"`
	MediaRef    *string `yaml:"media_ref"`
}

type ImportResult struct {
	Read     int `json:"read"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// ImportTemplates validates every entry before writing any. Entries whose
// description already exists for their type are skipped.
func (s *CatalogService) ImportTemplates(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, apperr.Invalid("catalog file is empty")
		}
		return nil, apperr.Invalid("failed to parse catalog: %v", err)
	}

	templates := make([]challenge.Template, 0, len(file.Challenges))
	var problems []string
	for i, e := range file.Challenges {
		tpl := challenge.Template{
			Type:            challenge.Type(strings.ToLower(strings.TrimSpace(e.Type))),
			DifficultyLevel: e.Difficulty,
			Description:     strings.TrimSpace(e.Description),
			MediaRef:        e.MediaRef,
			Source:          challenge.SourceCatalog,
		}
		if err := tpl.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("entry %d: %v", i+1, err))
			continue
		}
		templates = append(templates, tpl)
	}
	if len(problems) > 0 {
		return nil, apperr.Invalid("%s", strings.Join(problems, "; "))
	}

	inserted, err := s.store.InsertTemplates(ctx, templates)
	if err != nil {
		return nil, fmt.Errorf("failed to import templates: %w", err)
	}
	res := &ImportResult{
		Read:     len(templates),
		Inserted: len(inserted),
		Skipped:  len(templates) - len(inserted),
	}
	s.log.Info("catalog imported", "read", res.Read, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

func (s *CatalogService) ListTemplates(ctx context.Context, t challenge.Type) ([]challenge.Template, error) {
	return s.store.ListTemplates(ctx, t)
}
