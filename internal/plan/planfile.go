// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plan

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// PlanFile is the on-disk representation of a search plan. A plan can be
// saved for inspection and replayed later without a planning call.
// Implements: prd001-planning R4.1, R4.2.
type PlanFile struct {
	Question  string           `yaml:"question"`
	Plan      types.SearchPlan `yaml:"plan"`
	Timestamp time.Time        `yaml:"timestamp"`
}

// WritePlanFile saves a question and its plan to a YAML file.
func WritePlanFile(path, question string, p types.SearchPlan) error {
	pf := PlanFile{
		Question:  question,
		Plan:      p,
		Timestamp: time.Now(),
	}
	data, err := yaml.Marshal(&pf)
	if err != nil {
		return fmt.Errorf("marshaling plan file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadPlanFile loads a previously saved plan file from disk.
func ReadPlanFile(path string) (*PlanFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	var pf PlanFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	if len(pf.Plan.Topics) == 0 || len(pf.Plan.Stages) == 0 {
		return nil, fmt.Errorf("plan file %s has no topics or stages", path)
	}
	return &pf, nil
}
