package remediation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "remedy/internal/domain/remediation"
)

const samplePlan = `
[[jobs]]
id = "job-email"
name = "email normalization"

  [[jobs.actions]]
  id = "act-1"
  violation_id = "v-1"
  record_id = "customer-17"
  field_name = "email"
  action_type = "normalize"
  fix_method = "lowercase"
  confidence = 0.92
  risk_level = "low"
  risk_factors = ["format-only"]
  original_value = "Alice@Example.COM"
  suggested_value = "alice@example.com"
  reversible = true

    [jobs.actions.metadata]
    rule = "email-case"

  [[jobs.actions]]
  id = "act-2"
  violation_id = "v-2"
  record_id = "customer-18"
  field_name = "email"
  action_type = "normalize"
  fix_method = "lowercase"
  confidence = 0.4
  risk_level = "medium"
  original_value = "BOB@EXAMPLE.COM"
  suggested_value = "bob@example.com"
  status = "requires_review"
`

func TestImportPlanFromFile(t *testing.T) {
	f := setupService(t)
	path := filepath.Join(t.TempDir(), "plan.toml")
	require.NoError(t, os.WriteFile(path, []byte(samplePlan), 0o600))

	plan, err := LoadPlanFile(path)
	require.NoError(t, err)

	result, err := f.svc.ImportPlan(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, []string{"job-email"}, result.JobIDs)
	assert.Equal(t, 2, result.ActionCount)

	job := f.job(t, "job-email")
	assert.Equal(t, 2, job.TotalViolations)
	assert.Equal(t, domain.JobInProgress, job.Status)
	assert.Equal(t, "email normalization", job.Name)

	first := f.action(t, "act-1")
	assert.True(t, first.Metadata.Reversible())
	assert.Equal(t, "email-case", first.Metadata.Extra["rule"])
	assert.Equal(t, domain.RiskLow, first.RiskAssessment.Level)
	assert.Equal(t, []string{"format-only"}, first.RiskAssessment.Factors)
	require.NotNil(t, first.SuggestedValue)
	assert.Equal(t, "alice@example.com", *first.SuggestedValue)

	second := f.action(t, "act-2")
	assert.Equal(t, domain.StatusRequiresReview, second.Status)
	assert.False(t, second.Metadata.Reversible())
}

func TestImportPlanRejectsInvalidActions(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	base := PlanAction{
		ViolationID: "v", RecordID: "r", FieldName: "f", ActionType: "t", FixMethod: "m", Confidence: 0.5,
	}

	applied := base
	applied.Status = "applied"
	_, err := f.svc.ImportPlan(ctx, Plan{Jobs: []PlanJob{{ID: "j1", Actions: []PlanAction{base, applied}}}})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	overconfident := base
	overconfident.Confidence = 1.2
	_, err = f.svc.ImportPlan(ctx, Plan{Jobs: []PlanJob{{ID: "j1", Actions: []PlanAction{overconfident}}}})
	require.ErrorIs(t, err, domain.ErrInvalidConfidence)

	missing := base
	missing.FieldName = ""
	_, err = f.svc.ImportPlan(ctx, Plan{Jobs: []PlanJob{{ID: "j1", Actions: []PlanAction{missing}}}})
	require.Error(t, err)

	_, err = f.svc.ImportPlan(ctx, Plan{})
	require.Error(t, err)

	_, err = f.stores.Jobs.GetJob(ctx, "j1")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestImportPlanGeneratesIDs(t *testing.T) {
	f := setupService(t)

	result, err := f.svc.ImportPlan(context.Background(), Plan{Jobs: []PlanJob{{
		TotalViolations: 5,
		Actions: []PlanAction{{
			ViolationID: "v", RecordID: "r", FieldName: "f", ActionType: "t", FixMethod: "m", Confidence: 1,
		}},
	}}})
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 1)

	job := f.job(t, result.JobIDs[0])
	assert.Equal(t, 5, job.TotalViolations)

	page, err := f.svc.GetActionsByFilter(context.Background(), ActionQuery{JobID: job.ID})
	require.NoError(t, err)
	require.Len(t, page.Actions, 1)
	assert.NotEmpty(t, page.Actions[0].ID)
	assert.Equal(t, domain.StatusPending, page.Actions[0].Status)
}

func TestImportPlanRejectsNaNConfidence(t *testing.T) {
	f := setupService(t)
	plan, err := ParsePlan([]byte(`
[[jobs]]
id = "job-nan"

  [[jobs.actions]]
  violation_id = "v-1"
  record_id = "r-1"
  field_name = "email"
  action_type = "normalize"
  fix_method = "lowercase"
  confidence = nan
`))
	require.NoError(t, err)

	_, err = f.svc.ImportPlan(context.Background(), plan)
	require.ErrorIs(t, err, domain.ErrInvalidConfidence)

	_, err = f.stores.Jobs.GetJob(context.Background(), "job-nan")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestParsePlanRejectsMalformed(t *testing.T) {
	_, err := ParsePlan([]byte("[[jobs]\nid = "))
	require.Error(t, err)

	_, err = LoadPlanFile("")
	require.Error(t, err)
}
