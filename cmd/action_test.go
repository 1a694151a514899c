package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"remedy/internal/bootstrap/config"
	"remedy/internal/bootstrap/database"
	domain "remedy/internal/domain/remediation"
	cacheinfra "remedy/internal/infrastructure/cache"
	"remedy/internal/infrastructure/idgen"
	"remedy/internal/infrastructure/persistence/relational/model"
	"remedy/internal/infrastructure/persistence/relational/repository"
	"remedy/internal/infrastructure/persistence/relational/uow"
	"remedy/internal/ports"
	"remedy/internal/usecase/remediation"
)

const cmdTestPlan = `
[[jobs]]
id = "job-1"
name = "phone cleanup"

  [[jobs.actions]]
  id = "act-1"
  violation_id = "v-1"
  record_id = "r-1"
  field_name = "phone"
  action_type = "normalize"
  fix_method = "trim"
  confidence = 0.9
  risk_level = "low"
  original_value = " 555-0100 "
  suggested_value = "555-0100"
  reversible = true

  [[jobs.actions]]
  id = "act-2"
  violation_id = "v-2"
  record_id = "r-2"
  field_name = "phone"
  action_type = "normalize"
  fix_method = "trim"
  confidence = 0.4
  risk_level = "medium"
  original_value = " 555-0101"
  suggested_value = "555-0101"
  status = "requires_review"
`

func newTestService(t *testing.T) *remediation.Service {
	t.Helper()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "remedy.sqlite") + "?_pragma=busy_timeout(5000)"
	db, err := database.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := ports.SystemClock{}
	return remediation.NewService(
		repository.NewStores(db),
		uow.NewUnitOfWork(db),
		cacheinfra.NewKVCache(db, clock),
		idgen.NewUUIDGenerator(),
		clock,
		remediation.DefaultOptions(),
	)
}

func runCmd(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("%s %v: %v\n%s", cmd.Use, args, err, out.String())
	}
	return out.String()
}

func importTestPlan(t *testing.T, svc *remediation.Service) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "plan.toml")
	if err := os.WriteFile(path, []byte(cmdTestPlan), 0o644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	out := runCmd(t, newPlanImportCmd(svc), "--file", path)
	if !strings.Contains(out, "plan imported: jobs=job-1 actions=2") {
		t.Fatalf("import output = %q", out)
	}
}

func TestActionApplyFlags(t *testing.T) {
	t.Parallel()

	cmd := newActionApplyCmd(nil)
	if err := cmd.ParseFlags([]string{
		"--ids", "a-1,a-2",
		"--ids", "a-3",
		"--by", "alice",
		"--reason", "looks right",
		"--batch", "batch-7",
		"--json",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	req := readBulkRequest(cmd)
	if len(req.ActionIDs) != 3 || req.ActionIDs[2] != "a-3" {
		t.Fatalf("ids = %v, want [a-1 a-2 a-3]", req.ActionIDs)
	}
	if req.PerformedBy != "alice" || req.Reason != "looks right" || req.BatchID != "batch-7" {
		t.Fatalf("request = %#v", req)
	}
	asJSON, _ := cmd.Flags().GetBool("json")
	if !asJSON {
		t.Fatalf("json = false, want true")
	}
}

func TestActionListFlags(t *testing.T) {
	t.Parallel()

	cmd := newActionListCmd(nil)
	if err := cmd.ParseFlags([]string{
		"--job", "job-1",
		"--status", "pending,applied",
		"--risk", "low",
		"--min-confidence", "0.5",
		"--from", "2026-03-01",
		"--limit", "20",
	}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}

	query, err := readActionQuery(cmd)
	if err != nil {
		t.Fatalf("readActionQuery() error = %v", err)
	}
	if query.JobID != "job-1" || query.Limit != 20 {
		t.Fatalf("query = %#v", query)
	}
	if len(query.Statuses) != 2 || query.Statuses[1] != domain.StatusApplied {
		t.Fatalf("statuses = %v", query.Statuses)
	}
	if query.MinConfidence == nil || *query.MinConfidence != 0.5 {
		t.Fatalf("min confidence = %v, want 0.5", query.MinConfidence)
	}
	if query.MaxConfidence != nil {
		t.Fatalf("max confidence should stay unset")
	}
	if query.CreatedFrom == nil || query.CreatedFrom.Day() != 1 || query.CreatedTo != nil {
		t.Fatalf("date range = %v..%v", query.CreatedFrom, query.CreatedTo)
	}
}

func TestActionListRejectsBadStatus(t *testing.T) {
	t.Parallel()

	cmd := newActionListCmd(nil)
	if err := cmd.ParseFlags([]string{"--status", "done"}); err != nil {
		t.Fatalf("ParseFlags() error = %v", err)
	}
	if _, err := readActionQuery(cmd); err == nil {
		t.Fatalf("readActionQuery() expected error for unknown status")
	}
}

func TestParseTimeFlag(t *testing.T) {
	t.Parallel()

	if v, err := parseTimeFlag("from", ""); err != nil || v != nil {
		t.Fatalf("empty = (%v, %v), want (nil, nil)", v, err)
	}
	v, err := parseTimeFlag("to", "2026-03-01T10:00:00+02:00")
	if err != nil {
		t.Fatalf("parseTimeFlag() error = %v", err)
	}
	if v.Hour() != 8 || v.Location().String() != "UTC" {
		t.Fatalf("parsed = %s, want 08:00 UTC", v)
	}
	if _, err := parseTimeFlag("to", "yesterday"); err == nil || !strings.Contains(err.Error(), "--to") {
		t.Fatalf("expected flag-named error, got %v", err)
	}
}

func TestApplyRollbackRoundTrip(t *testing.T) {
	svc := newTestService(t)
	importTestPlan(t, svc)

	out := runCmd(t, newActionApplyCmd(svc), "--ids", "act-1,missing", "--by", "alice", "--batch", "batch-1", "--json")
	var applied remediation.BulkActionResult
	if err := json.Unmarshal([]byte(out), &applied); err != nil {
		t.Fatalf("decode apply output: %v\n%s", err, out)
	}
	if applied.BatchID != "batch-1" || applied.TotalRequested != 2 || applied.SuccessCount != 1 || applied.FailureCount != 1 {
		t.Fatalf("apply result = %+v", applied)
	}
	if applied.Results[1].Error != "action missing not found" {
		t.Fatalf("missing id error = %q", applied.Results[1].Error)
	}

	out = runCmd(t, newJobShowCmd(svc), "--id", "job-1", "--json")
	var progress remediation.JobProgress
	if err := json.Unmarshal([]byte(out), &progress); err != nil {
		t.Fatalf("decode job output: %v\n%s", err, out)
	}
	if progress.FixedViolations != 1 || progress.TotalViolations != 2 || progress.PercentComplete != 50 {
		t.Fatalf("progress = %+v", progress)
	}

	out = runCmd(t, newActionBatchHistoryCmd(svc), "--batch", "batch-1", "--json")
	var records []remediation.HistoryRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode batch history: %v\n%s", err, out)
	}
	if len(records) != 1 || records[0].ActionID != "act-1" || records[0].EventType != domain.EventApproved {
		t.Fatalf("batch history = %+v", records)
	}

	out = runCmd(t, newActionRollbackCmd(svc), "--ids", "act-1", "--by", "alice", "--reason", "wrong record")
	if !strings.Contains(out, "action rolled back to pending") {
		t.Fatalf("rollback output = %q", out)
	}

	out = runCmd(t, newActionTimelineCmd(svc), "--id", "act-1")
	for _, want := range []string{"current=pending", "created", "approved", "rolled_back", "wrong record"} {
		if !strings.Contains(out, want) {
			t.Fatalf("timeline missing %q:\n%s", want, out)
		}
	}
}

func TestRollbackSingleNotAppliedFails(t *testing.T) {
	svc := newTestService(t)
	importTestPlan(t, svc)

	cmd := newActionRollbackCmd(svc)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--ids", "act-2", "--by", "alice"})
	err := cmd.ExecuteContext(context.Background())
	if err == nil {
		t.Fatalf("rollback of unapplied action should fail")
	}
	if !strings.Contains(err.Error(), "cannot rollback action act-2") {
		t.Fatalf("err = %v", err)
	}
}

func TestSetStatusAndList(t *testing.T) {
	svc := newTestService(t)
	importTestPlan(t, svc)

	out := runCmd(t, newActionSetStatusCmd(svc), "--ids", "act-2", "--status", "skipped", "--by", "bob")
	if !strings.Contains(out, "requested=1 succeeded=1 failed=0") {
		t.Fatalf("set-status output = %q", out)
	}

	out = runCmd(t, newActionListCmd(svc), "--job", "job-1", "--json")
	var page remediation.ActionPage
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode list output: %v\n%s", err, out)
	}
	if page.Total != 2 || page.Summary.StatusBreakdown[domain.StatusSkipped] != 1 || page.Summary.StatusBreakdown[domain.StatusPending] != 1 {
		t.Fatalf("page = %+v", page)
	}

	out = runCmd(t, newJobStatusCmd(svc), "--id", "job-1")
	if !strings.Contains(out, "in_progress") {
		t.Fatalf("job status output = %q", out)
	}
}
