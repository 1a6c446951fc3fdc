package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"qualiflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type processFixture struct {
	db        *gorm.DB
	processes *ProcessService
	workflows *WorkflowService
	user      models.User
	branch    models.Branch
	template  models.WorkflowTemplate
}

func newProcessFixture(t *testing.T, steps int) *processFixture {
	t.Helper()
	db := newTestDB(t)
	user := seedUser(t, db, "operator")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, steps)

	return &processFixture{
		db:        db,
		processes: NewProcessService(db, testLogger()),
		workflows: NewWorkflowService(db, testLogger()),
		user:      user,
		branch:    branch,
		template:  template,
	}
}

func (f *processFixture) createProcess(t *testing.T) *models.Process {
	t.Helper()
	process, err := f.processes.CreateProcess(context.Background(), CreateProcessInput{
		Name:        "Audit run",
		TemplateID:  f.template.ID,
		BranchID:    f.branch.ID,
		CreatedByID: f.user.ID,
	})
	require.NoError(t, err)
	return process
}

func TestCreateProcessMaterializesSteps(t *testing.T) {
	f := newProcessFixture(t, 3)
	process := f.createProcess(t)

	assert.Equal(t, models.ProcessPlanned, process.Status)

	got, err := f.processes.GetProcess(context.Background(), process.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 3)
	for i, step := range got.Steps {
		assert.Equal(t, models.StepPending, step.Status)
		assert.Equal(t, uint(i+1), step.StepDef.StepOrder)
	}
}

func TestCreateProcessZeroSteps(t *testing.T) {
	f := newProcessFixture(t, 0)
	process := f.createProcess(t)

	assert.Equal(t, models.ProcessPlanned, process.Status)

	progress, err := f.processes.Progress(context.Background(), process.ID)
	require.NoError(t, err)
	assert.Zero(t, progress)
}

func TestAdvanceStepDrivesProcessToCompleted(t *testing.T) {
	f := newProcessFixture(t, 3)
	process := f.createProcess(t)
	ctx := context.Background()

	// first step started: process leaves planned
	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	require.NoError(t, err)

	got, err := f.processes.GetProcess(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessInProgress, got.Status)
	assert.NotNil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)

	for order := uint(1); order <= 3; order++ {
		if order > 1 {
			_, err = f.processes.AdvanceStep(ctx, process.ID, order, models.StepInProgress)
			require.NoError(t, err)
		}
		step, err := f.processes.AdvanceStep(ctx, process.ID, order, models.StepDone)
		require.NoError(t, err)
		assert.NotNil(t, step.CompletedAt)
	}

	got, err = f.processes.GetProcess(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	progress, err := f.processes.Progress(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, progress)
}

func TestConcurrentFinalStepsConvergeToCompleted(t *testing.T) {
	f := newProcessFixture(t, 3)
	process := f.createProcess(t)
	ctx := context.Background()

	for order := uint(1); order <= 3; order++ {
		_, err := f.processes.AdvanceStep(ctx, process.ID, order, models.StepInProgress)
		require.NoError(t, err)
	}
	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepDone)
	require.NoError(t, err)

	// steps 2 and 3 finish simultaneously; whichever transition lands
	// second must see the other as done and derive completed
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, order := range []uint{2, 3} {
		wg.Add(1)
		go func(i int, order uint) {
			defer wg.Done()
			_, errs[i] = f.processes.AdvanceStep(ctx, process.ID, order, models.StepDone)
		}(i, order)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	got, err := f.processes.GetProcess(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
}

func TestAdvanceStepUnknownProcess(t *testing.T) {
	f := newProcessFixture(t, 0)

	_, err := f.processes.AdvanceStep(context.Background(), 999, 1, models.StepInProgress)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgressPartial(t *testing.T) {
	f := newProcessFixture(t, 4)
	process := f.createProcess(t)
	ctx := context.Background()

	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	require.NoError(t, err)
	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepDone)
	require.NoError(t, err)

	progress, err := f.processes.Progress(ctx, process.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, progress, 1e-9)
}

func TestAdvanceStepRejectsIllegalTransitions(t *testing.T) {
	f := newProcessFixture(t, 2)
	process := f.createProcess(t)
	ctx := context.Background()

	// pending cannot jump straight to done
	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepDone)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// done is terminal
	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	require.NoError(t, err)
	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepDone)
	require.NoError(t, err)

	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	var transition *TransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, string(models.StepDone), transition.From)
	assert.Equal(t, string(models.StepInProgress), transition.To)

	// blocked must pass through in_progress before done
	_, err = f.processes.AdvanceStep(ctx, process.ID, 2, models.StepBlocked)
	require.NoError(t, err)
	_, err = f.processes.AdvanceStep(ctx, process.ID, 2, models.StepDone)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// done steps cannot be blocked either
	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepBlocked)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBlockedStepUnblocks(t *testing.T) {
	f := newProcessFixture(t, 1)
	process := f.createProcess(t)
	ctx := context.Background()

	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepBlocked)
	require.NoError(t, err)

	step, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StepInProgress, step.Status)
	assert.NotNil(t, step.StartedAt)
}

func TestAdvanceStepUnknownOrder(t *testing.T) {
	f := newProcessFixture(t, 2)
	process := f.createProcess(t)

	_, err := f.processes.AdvanceStep(context.Background(), process.ID, 99, models.StepInProgress)
	assert.ErrorIs(t, err, ErrStepNotFound)
}

func TestCancelProcessStopsAdvances(t *testing.T) {
	f := newProcessFixture(t, 2)
	process := f.createProcess(t)
	ctx := context.Background()

	cancelled, err := f.processes.CancelProcess(ctx, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessCancelled, cancelled.Status)

	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	assert.ErrorIs(t, err, ErrProcessCancelled)

	// step set untouched
	got, err := f.processes.GetProcess(ctx, process.ID)
	require.NoError(t, err)
	for _, step := range got.Steps {
		assert.Equal(t, models.StepPending, step.Status)
	}

	// cancelling twice reports the cancelled state
	_, err = f.processes.CancelProcess(ctx, process.ID)
	assert.ErrorIs(t, err, ErrProcessCancelled)
}

func TestCancelCompletedProcessRejected(t *testing.T) {
	f := newProcessFixture(t, 1)
	process := f.createProcess(t)
	ctx := context.Background()

	_, err := f.processes.AdvanceStep(ctx, process.ID, 1, models.StepInProgress)
	require.NoError(t, err)
	_, err = f.processes.AdvanceStep(ctx, process.ID, 1, models.StepDone)
	require.NoError(t, err)

	_, err = f.processes.CancelProcess(ctx, process.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTemplateEditDoesNotTouchExistingProcess(t *testing.T) {
	f := newProcessFixture(t, 2)
	process := f.createProcess(t)
	ctx := context.Background()

	_, err := f.workflows.AddStep(ctx, f.template.ID, StepDefInput{Name: "Late addition"})
	require.NoError(t, err)

	got, err := f.processes.GetProcess(ctx, process.ID)
	require.NoError(t, err)
	assert.Len(t, got.Steps, 2)

	// a process created after the edit picks up the new step
	fresh := f.createProcess(t)
	gotFresh, err := f.processes.GetProcess(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Len(t, gotFresh.Steps, 3)
}

func TestDeleteProcessOrphansActivities(t *testing.T) {
	f := newProcessFixture(t, 1)
	process := f.createProcess(t)
	ctx := context.Background()

	activities := NewActivityService(f.db, testLogger())
	activity, err := activities.CreateActivity(ctx, ActivityInput{
		Title:     "Follow-up",
		ProcessID: &process.ID,
		BranchID:  f.branch.ID,
	}, f.user.ID)
	require.NoError(t, err)

	require.NoError(t, f.processes.DeleteProcess(ctx, process.ID))

	// activity survives without its process link
	got, err := activities.GetActivity(ctx, activity.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ProcessID)

	var stepCount int64
	require.NoError(t, f.db.Model(&models.ProcessStep{}).
		Where("process_id = ?", process.ID).
		Count(&stepCount).Error)
	assert.Zero(t, stepCount)
}

func TestCreateProcessUnknownTemplate(t *testing.T) {
	f := newProcessFixture(t, 0)

	_, err := f.processes.CreateProcess(context.Background(), CreateProcessInput{
		Name:        "broken",
		TemplateID:  999,
		BranchID:    f.branch.ID,
		CreatedByID: f.user.ID,
	})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestUpdateStepDetails(t *testing.T) {
	f := newProcessFixture(t, 1)
	process := f.createProcess(t)
	ctx := context.Background()

	assignee := seedUser(t, f.db, "assignee")
	notes := "needs review by QA"

	step, err := f.processes.UpdateStepDetails(ctx, process.ID, 1, StepDetailsInput{
		AssignedToID: &assignee.ID,
		Notes:        &notes,
	})
	require.NoError(t, err)
	require.NotNil(t, step.AssignedToID)
	assert.Equal(t, assignee.ID, *step.AssignedToID)
	assert.Equal(t, notes, step.Notes)

	// status untouched by assignment
	assert.Equal(t, models.StepPending, step.Status)
}
