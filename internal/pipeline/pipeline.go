package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wikibio/internal/artifact"
	"wikibio/internal/domain"
	"wikibio/internal/infra"
	"wikibio/internal/providers/biography"
	"wikibio/internal/providers/wavespeed"
	"wikibio/internal/session"
)

const reasonSessionExpired = "session expired"

// Vendor is the slice of the media vendor client the pipeline drives.
type Vendor interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
	SubmitImageEdit(ctx context.Context, req wavespeed.ImageEditRequest) (string, error)
	SubmitVideo(ctx context.Context, req wavespeed.VideoRequest) (string, error)
	AwaitCompletion(ctx context.Context, requestID string, interval, maxWait time.Duration) (string, error)
	Fetch(ctx context.Context, outputRef string) ([]byte, string, error)
}

// Options configures a Pipeline.
type Options struct {
	Sessions     *session.Registry
	Store        *artifact.Store
	Vendor       Vendor
	Writer       biography.Generator
	Templates    biography.Templates
	Logger       infra.Logger
	PollInterval time.Duration
	PollMaxWait  time.Duration
}

// Pipeline orchestrates the ordered generation stages for a session: the
// synchronous text stage first, then async image and video stages that run
// as detached background watchers. Callers get a job handle back immediately
// and observe progress through Check.
type Pipeline struct {
	sessions     *session.Registry
	store        *artifact.Store
	vendor       Vendor
	writer       biography.Generator
	templates    biography.Templates
	jobs         *JobTable
	logger       infra.Logger
	baseCtx      context.Context
	pollInterval time.Duration
	pollMaxWait  time.Duration
	wg           sync.WaitGroup

	attrsMu sync.Mutex
	attrs   map[string]biography.Request
}

// New constructs a pipeline. baseCtx bounds the lifetime of background
// watchers; cancelling it (process shutdown) aborts their vendor polling.
func New(baseCtx context.Context, opts Options) *Pipeline {
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	pollMaxWait := opts.PollMaxWait
	if pollMaxWait <= 0 {
		pollMaxWait = 5 * time.Minute
	}
	return &Pipeline{
		sessions:     opts.Sessions,
		store:        opts.Store,
		vendor:       opts.Vendor,
		writer:       opts.Writer,
		templates:    opts.Templates,
		jobs:         NewJobTable(),
		logger:       opts.Logger,
		baseCtx:      baseCtx,
		pollInterval: pollInterval,
		pollMaxWait:  pollMaxWait,
		attrs:        make(map[string]biography.Request),
	}
}

// Jobs exposes the job table for read-side callers.
func (p *Pipeline) Jobs() *JobTable {
	return p.jobs
}

// StartTextStage synchronously generates the session's biography document
// and stores it. It must complete before any async stage: the later patches
// need a document to target.
func (p *Pipeline) StartTextStage(ctx context.Context, sessionID string, attrs biography.Request) error {
	if !p.sessions.Validate(sessionID) {
		return domain.ErrSessionExpired
	}
	html, err := p.writer.Generate(ctx, attrs)
	if err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	if err := p.store.WriteDocument(sessionID, []byte(html)); err != nil {
		return fmt.Errorf("text stage: %w", err)
	}
	p.attrsMu.Lock()
	p.attrs[sessionID] = attrs
	p.attrsMu.Unlock()
	p.logger.Info().Str("session_id", sessionID).Msg("pipeline: biography written")
	return nil
}

// attrsFor returns the attributes recorded by the session's text stage.
// Absence means the text stage has not run, so no patch-dependent stage may
// start yet.
func (p *Pipeline) attrsFor(sessionID string) (biography.Request, bool) {
	p.attrsMu.Lock()
	defer p.attrsMu.Unlock()
	attrs, ok := p.attrs[sessionID]
	return attrs, ok
}

// StartImageStage uploads the user photo, submits the portrait edit, and
// detaches a watcher for its completion. The returned handle is immediately
// usable with Check. Submission failures surface here and create no job.
func (p *Pipeline) StartImageStage(ctx context.Context, sessionID string, photo []byte) (string, error) {
	if !p.sessions.Validate(sessionID) {
		return "", domain.ErrSessionExpired
	}
	attrs, ok := p.attrsFor(sessionID)
	if !ok {
		return "", domain.ErrStageNotReady
	}
	photoURL, err := p.vendor.Upload(ctx, "photo.jpg", photo)
	if err != nil {
		return "", fmt.Errorf("image stage: %w", err)
	}
	requestID, err := p.vendor.SubmitImageEdit(ctx, wavespeed.ImageEditRequest{
		ImageURL: photoURL,
		Prompt:   p.templates.RenderPortrait(attrs),
	})
	if err != nil {
		return "", fmt.Errorf("image stage: %w", err)
	}
	return p.launch(sessionID, domain.JobKindImage, requestID, biography.PortraitSlot), nil
}

// StartVideoStage derives a scene video from a completed image job: the
// stored portrait is re-uploaded as the image-to-video input. Starting from
// an unfinished image job fails with ErrStageNotReady; re-running a failed
// stage means calling this again for a fresh job.
func (p *Pipeline) StartVideoStage(ctx context.Context, sessionID, fromHandle string) (string, error) {
	if !p.sessions.Validate(sessionID) {
		return "", domain.ErrSessionExpired
	}
	attrs, ok := p.attrsFor(sessionID)
	if !ok {
		return "", domain.ErrStageNotReady
	}
	imageJob, ok := p.jobs.Get(fromHandle)
	if !ok || imageJob.SessionID != sessionID || imageJob.Kind != domain.JobKindImage {
		return "", domain.ErrNotFound
	}
	if imageJob.State != domain.JobStateCompleted {
		return "", domain.ErrStageNotReady
	}
	portrait, err := p.store.ReadAsset(sessionID, imageJob.AssetKey)
	if err != nil {
		return "", fmt.Errorf("video stage: %w", err)
	}
	imageURL, err := p.vendor.Upload(ctx, imageJob.AssetKey, portrait)
	if err != nil {
		return "", fmt.Errorf("video stage: %w", err)
	}
	requestID, err := p.vendor.SubmitVideo(ctx, wavespeed.VideoRequest{
		ImageURL: imageURL,
		Prompt:   p.templates.RenderScene(attrs),
	})
	if err != nil {
		return "", fmt.Errorf("video stage: %w", err)
	}
	return p.launch(sessionID, domain.JobKindVideo, requestID, biography.VideoSlot), nil
}

func (p *Pipeline) launch(sessionID string, kind domain.JobKind, requestID, slot string) string {
	now := time.Now()
	job := &domain.Job{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		RequestID: requestID,
		State:     domain.JobStateSubmitted,
		Slot:      slot,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.jobs.Insert(job)
	p.sessions.JobStarted(sessionID)
	p.wg.Add(1)
	go p.watch(job.ID)
	p.logger.Info().
		Str("session_id", sessionID).
		Str("handle", job.ID).
		Str("kind", string(kind)).
		Str("request_id", requestID).
		Msg("pipeline: stage submitted")
	return job.ID
}

// watch advances one job from submission to a terminal state. It is the
// job's exclusive writer. The vendor call always runs to its own end even
// when the session expires mid-flight; only the local asset write is
// skipped then.
func (p *Pipeline) watch(jobID string) {
	defer p.wg.Done()
	job, ok := p.jobs.Get(jobID)
	if !ok {
		return
	}
	defer p.sessions.JobFinished(job.SessionID)

	p.jobs.SetPolling(jobID)
	outputRef, err := p.vendor.AwaitCompletion(p.baseCtx, job.RequestID, p.pollInterval, p.pollMaxWait)
	if err != nil {
		p.fail(jobID, failureReason(err), err)
		return
	}
	data, _, err := p.vendor.Fetch(p.baseCtx, outputRef)
	if err != nil {
		p.fail(jobID, failureReason(err), err)
		return
	}
	if !p.sessions.Validate(job.SessionID) {
		p.fail(jobID, reasonSessionExpired, domain.ErrSessionExpired)
		return
	}
	assetKey, err := p.store.WriteAsset(job.SessionID, assetFilename(job), data)
	if err != nil {
		p.fail(jobID, "could not store generated asset", err)
		return
	}
	p.jobs.Complete(jobID, assetKey)
	p.logger.Info().
		Str("handle", jobID).
		Str("asset", assetKey).
		Str("kind", string(job.Kind)).
		Msg("pipeline: stage completed")
}

func (p *Pipeline) fail(jobID, reason string, cause error) {
	p.jobs.Fail(jobID, reason)
	p.logger.Error().Err(cause).Str("handle", jobID).Str("reason", reason).Msg("pipeline: stage failed")
}

// CheckState is the poll protocol's answer for one job handle.
type CheckState string

const (
	CheckPending CheckState = "pending"
	CheckReady   CheckState = "ready"
	CheckFailed  CheckState = "failed"
)

// CheckResult carries the poll answer plus the asset reference on ready and
// the failure reason on failed.
type CheckResult struct {
	State    CheckState
	AssetURL string
	Reason   string
}

// Check reports a job's progress without ever blocking: one table read and,
// on the first ready observation, the one-time document patch. Handles owned
// by other sessions read as not found. Polling a job after its terminal
// answer returns the same answer; the patch never repeats.
func (p *Pipeline) Check(sessionID, handle string) (CheckResult, error) {
	job, ok := p.jobs.Get(handle)
	if !ok || job.SessionID != sessionID {
		return CheckResult{}, domain.ErrNotFound
	}
	switch job.State {
	case domain.JobStateFailed:
		return CheckResult{State: CheckFailed, Reason: job.Reason}, nil
	case domain.JobStateCompleted:
		assetURL := p.assetURL(job)
		if p.jobs.MarkPatched(handle) {
			patched, err := p.store.PatchSlot(sessionID, job.Slot, assetURL)
			if err != nil {
				p.logger.Error().Err(err).Str("handle", handle).Msg("check: document patch failed")
			} else if !patched {
				p.logger.Warn().
					Str("handle", handle).
					Str("slot", job.Slot).
					Msg("check: slot not found, patch skipped")
			}
		}
		return CheckResult{State: CheckReady, AssetURL: assetURL}, nil
	default:
		return CheckResult{State: CheckPending}, nil
	}
}

// PurgeSession drops the session's jobs and storage. Callers expire the
// session in the registry first.
func (p *Pipeline) PurgeSession(sessionID string) error {
	p.jobs.DropSession(sessionID)
	p.attrsMu.Lock()
	delete(p.attrs, sessionID)
	p.attrsMu.Unlock()
	return p.store.Purge(sessionID)
}

// Wait blocks until every launched watcher has finished. Used on shutdown
// and in tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

func (p *Pipeline) assetURL(job domain.Job) string {
	return "/assets/" + job.SessionID + "/" + job.AssetKey
}

func assetFilename(job domain.Job) string {
	if job.Kind == domain.JobKindVideo {
		return job.RequestID + ".mp4"
	}
	return job.RequestID + ".jpg"
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, wavespeed.ErrPollTimeout):
		return "generation timed out"
	case errors.Is(err, domain.ErrSessionExpired):
		return reasonSessionExpired
	case err == nil:
		return ""
	default:
		return strings.TrimPrefix(err.Error(), "wavespeed: ")
	}
}
