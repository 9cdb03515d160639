package profile

import (
	"context"
	"sync"

	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/types"
)

// Wizard is the linear profile-completion state machine. It accumulates
// partial profile data across the nine fixed steps, persists partial progress
// after every advance, and keeps a completion score current.
//
// While the wizard is open it holds a live subscription to the remote profile
// document; remote pushes overwrite the local draft, last writer wins.
type Wizard struct {
	repo *Repository

	mu          sync.Mutex
	candidateID string
	step        Step
	draft       types.CandidateProfile
	status      types.ProfileCompletionStatus
	active      bool
	unsubscribe docstore.Unsubscribe
}

// NewWizard creates a wizard over the profile repository.
func NewWizard(repo *Repository) *Wizard {
	return &Wizard{repo: repo}
}

// LoadProfile fetches the candidate's existing profile and decides the mode:
// no profile, or a profile not yet complete, enters wizard mode at the first
// step; a complete profile leaves the wizard inactive. It also (re)opens the
// live subscription for the candidate.
func (w *Wizard) LoadProfile(ctx context.Context, candidateID string) error {
	w.mu.Lock()
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
	w.mu.Unlock()

	p, err := w.repo.Load(ctx, candidateID)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.candidateID = candidateID
	w.step = StepBasicInfo
	if p != nil {
		w.draft = *p
	} else {
		w.draft = types.CandidateProfile{}
	}
	w.status = WeightedCompletion(&w.draft)
	w.active = p == nil || !p.IsProfileComplete
	w.mu.Unlock()

	unsub, err := w.repo.Watch(ctx, candidateID, func(remote *types.CandidateProfile) {
		if remote == nil {
			return
		}
		w.mu.Lock()
		w.draft = *remote
		w.status = WeightedCompletion(&w.draft)
		w.mu.Unlock()
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.unsubscribe = unsub
	w.mu.Unlock()
	return nil
}

// Advance merges the step's data into the draft, recomputes completion,
// persists the merged draft, and moves to the next step. At the last step it
// reports done instead of moving. A nil or empty StepData is a skip: the
// section stays incomplete and the wizard still advances.
func (w *Wizard) Advance(ctx context.Context, data StepData) (done bool, err error) {
	w.mu.Lock()
	if data != nil {
		data.apply(&w.draft)
	}
	w.status = WeightedCompletion(&w.draft)
	w.draft.ProfileCompletionPercentage = w.status.Percentage
	w.draft.IsProfileComplete = w.status.Overall
	snapshot := w.draft
	id := w.candidateID
	w.mu.Unlock()

	if err := w.repo.Save(ctx, id, &snapshot); err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step < stepCount-1 {
		w.step++
		return false, nil
	}
	w.active = false
	return true, nil
}

// Back moves one step back without persisting anything. Floor is step zero.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > StepBasicInfo {
		w.step--
	}
}

// JumpTo moves to any valid step unconditionally.
func (w *Wizard) JumpTo(step Step) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if step >= StepBasicInfo && step < stepCount {
		w.step = step
	}
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Active reports whether the wizard is in completion mode. False means the
// profile was already complete when loaded, or the last step was advanced.
func (w *Wizard) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Draft returns a snapshot of the local profile draft.
func (w *Wizard) Draft() types.CandidateProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Completion returns the current completion status.
func (w *Wizard) Completion() types.ProfileCompletionStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Close tears down the live subscription.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}
