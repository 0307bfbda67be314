package catalog

import (
	"context"
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

type fileSource struct {
	path string
}

// NewFileSource returns a Source that loads plans from a YAML file.
// The file holds a list of plans:
//
//	- id: professional
//	  name: Professional
//	  pricing:
//	    monthly: {amount: 1200, currency: USD}
//	    yearly: {amount: 9900, currency: USD}
//
// The file is re-read on every Load, so catalog changes take effect on the
// next service restart without code changes.
func NewFileSource(path string) Source {
	if path == "" {
		panic("catalog: file source path is required")
	}
	return &fileSource{path: path}
}

func (s *fileSource) Load(ctx context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	var list []Plan
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}

	plans := make(map[string]Plan, len(list))
	for _, plan := range list {
		plans[plan.ID] = plan
	}

	if err := Validate(plans); err != nil {
		return nil, err
	}
	return plans, nil
}
