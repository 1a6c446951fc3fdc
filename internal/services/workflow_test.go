package services

import (
	"context"
	"testing"

	"qualiflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddStepAssignsNextOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")

	template, err := svc.CreateTemplate(ctx, TemplateInput{
		Name:        "Document review",
		BranchID:    branch.ID,
		CreatedByID: user.ID,
	})
	require.NoError(t, err)

	first, err := svc.AddStep(ctx, template.ID, StepDefInput{Name: "Draft"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.StepOrder)

	second, err := svc.AddStep(ctx, template.ID, StepDefInput{Name: "Review"})
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.StepOrder)

	// explicit order slots in
	fifth, err := svc.AddStep(ctx, template.ID, StepDefInput{Name: "Archive", Order: 5})
	require.NoError(t, err)
	assert.Equal(t, uint(5), fifth.StepOrder)

	// next auto-order continues after the max
	sixth, err := svc.AddStep(ctx, template.ID, StepDefInput{Name: "Cleanup"})
	require.NoError(t, err)
	assert.Equal(t, uint(6), sixth.StepOrder)
}

func TestAddStepDuplicateOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, 2)

	_, err := svc.AddStep(ctx, template.ID, StepDefInput{Name: "Clash", Order: 2})
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestUpdateStepOrderCollision(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, 2)

	got, err := svc.GetTemplate(ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 2)

	_, err = svc.UpdateStep(ctx, got.Steps[0].ID, StepDefInput{
		Name:  got.Steps[0].Name,
		Order: 2,
	})
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// moving to a free slot works
	moved, err := svc.UpdateStep(ctx, got.Steps[0].ID, StepDefInput{
		Name:  got.Steps[0].Name,
		Order: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, uint(7), moved.StepOrder)
}

func TestDeleteStepReferencedByProcess(t *testing.T) {
	db := newTestDB(t)
	workflows := NewWorkflowService(db, testLogger())
	processes := NewProcessService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, 1)

	_, err := processes.CreateProcess(ctx, CreateProcessInput{
		Name:        "Run",
		TemplateID:  template.ID,
		BranchID:    branch.ID,
		CreatedByID: user.ID,
	})
	require.NoError(t, err)

	got, err := workflows.GetTemplate(ctx, template.ID)
	require.NoError(t, err)
	require.Len(t, got.Steps, 1)

	err = workflows.DeleteStep(ctx, got.Steps[0].ID)
	assert.ErrorIs(t, err, ErrReferentialConflict)

	// an unreferenced step deletes fine
	spare, err := workflows.AddStep(ctx, template.ID, StepDefInput{Name: "Spare"})
	require.NoError(t, err)
	assert.NoError(t, workflows.DeleteStep(ctx, spare.ID))
}

func TestDeleteTemplateWithProcesses(t *testing.T) {
	db := newTestDB(t)
	workflows := NewWorkflowService(db, testLogger())
	processes := NewProcessService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, 1)

	_, err := processes.CreateProcess(ctx, CreateProcessInput{
		Name:        "Run",
		TemplateID:  template.ID,
		BranchID:    branch.ID,
		CreatedByID: user.ID,
	})
	require.NoError(t, err)

	err = workflows.DeleteTemplate(ctx, template.ID)
	assert.ErrorIs(t, err, ErrReferentialConflict)
}

func TestDeleteTemplateCascadesSteps(t *testing.T) {
	db := newTestDB(t)
	svc := NewWorkflowService(db, testLogger())
	ctx := context.Background()

	user := seedUser(t, db, "author")
	branch := seedBranch(t, db, "HQ")
	template := seedTemplate(t, db, branch, user, 3)

	require.NoError(t, svc.DeleteTemplate(ctx, template.ID))

	var count int64
	require.NoError(t, db.Model(&models.WorkflowStepDef{}).
		Where("template_id = ?", template.ID).
		Count(&count).Error)
	assert.Zero(t, count)
}
