package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dputra/mailroom/internal/common"
	"github.com/dputra/mailroom/internal/logging"
	"github.com/dputra/mailroom/internal/server/models"
	"github.com/dputra/mailroom/internal/server/objectstore"
	"github.com/dputra/mailroom/internal/server/repositories/kv"
)

const (
	packageKeyPrefix = "package:"
	historyKeyPrefix = "history:"

	// MaxEvidenceSize caps evidence photos at 5 MiB.
	MaxEvidenceSize = 5 << 20
)

// evidenceExtensions maps the accepted evidence content types to file
// extensions used in object names.
var evidenceExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/heic": ".heic",
}

// RegisterRequest carries the immutable descriptive attributes of a newly
// arrived parcel.
type RegisterRequest struct {
	RecipientName string `json:"recipientName"`
	RecipientID   string `json:"recipientId"`
	Program       string `json:"program"`
	PhoneNumber   string `json:"phoneNumber"`
	PackageType   string `json:"packageType"`
}

// CustodyConfig tunes the custody service.
type CustodyConfig struct {
	// EvidenceURLTTL is the validity of signed evidence URLs.
	// Defaults to one year.
	EvidenceURLTTL time.Duration
	// ObjectStoreTimeout bounds each object-store call.
	ObjectStoreTimeout time.Duration
}

// CustodyService owns the package lifecycle state machine. It is the only
// writer of Package and HistoryEntry records; every mutation is followed by
// exactly one audit append.
type CustodyService struct {
	kv      kv.Repository
	objects objectstore.Store
	audit   *AuditService
	logger  logging.Logger
	cfg     CustodyConfig

	// locks serializes the read-check-write section per package id, so two
	// racing pickups on one id resolve to one success and one InvalidState.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now   func() time.Time
	newID func() string
}

// NewCustodyService wires the custody state machine.
func NewCustodyService(repo kv.Repository, objects objectstore.Store, audit *AuditService, logger logging.Logger, cfg CustodyConfig) *CustodyService {
	if cfg.EvidenceURLTTL <= 0 {
		cfg.EvidenceURLTTL = 365 * 24 * time.Hour
	}
	if cfg.ObjectStoreTimeout <= 0 {
		cfg.ObjectStoreTimeout = 30 * time.Second
	}
	s := &CustodyService{
		kv:      repo,
		objects: objects,
		audit:   audit,
		logger:  logger,
		cfg:     cfg,
		locks:   make(map[string]*sync.Mutex),
		now:     time.Now,
	}
	// The millisecond stamp keeps ids discoverable in creation order; the
	// uuid suffix keeps same-tick registrations distinct.
	s.newID = func() string {
		return fmt.Sprintf("PKT%d-%s", s.now().UnixMilli(), uuid.New().String()[:8])
	}
	return s
}

func (s *CustodyService) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	return m
}

// appendAudit records a mutating action. Audit failures are reported to the
// operational log only; the primary operation has already succeeded.
func (s *CustodyService) appendAudit(ctx context.Context, actor models.Actor, action, summary string) {
	if err := s.audit.Append(ctx, actor.AuditIdentity(), action, summary); err != nil {
		s.logger.Error(ctx, "audit append failed", "action", action, "subject", summary, "error", err.Error())
	}
}

func subjectSummary(p *models.Package) string {
	return fmt.Sprintf("%s - %s", p.RecipientName, p.RecipientID)
}

// Register creates a package in Pending state and assigns its id.
func (s *CustodyService) Register(ctx context.Context, req RegisterRequest, actor models.Actor) (*models.Package, error) {
	missing := ""
	switch {
	case req.RecipientName == "":
		missing = "recipientName"
	case req.RecipientID == "":
		missing = "recipientId"
	case req.Program == "":
		missing = "program"
	case req.PhoneNumber == "":
		missing = "phoneNumber"
	case req.PackageType == "":
		missing = "packageType"
	}
	if missing != "" {
		return nil, fmt.Errorf("%w: missing required field %s", common.ErrorValidation, missing)
	}

	now := s.now().UTC()
	pkg := &models.Package{
		ID:            s.newID(),
		RecipientName: req.RecipientName,
		RecipientID:   req.RecipientID,
		Program:       req.Program,
		PhoneNumber:   req.PhoneNumber,
		PackageType:   req.PackageType,
		Status:        models.StatusPending,
		ArrivalDate:   now.Format(time.DateOnly),
		CreatedBy:     actor.ID,
		CreatedAt:     now.Format(time.RFC3339),
	}

	if err := s.kv.Set(ctx, packageKeyPrefix+pkg.ID, pkg); err != nil {
		return nil, fmt.Errorf("%w: save package: %w", common.ErrorStorage, err)
	}

	s.appendAudit(ctx, actor, models.ActionCreate, subjectSummary(pkg))
	return pkg, nil
}

// Get returns one package by id.
func (s *CustodyService) Get(ctx context.Context, id string) (*models.Package, error) {
	var pkg models.Package
	err := s.kv.Get(ctx, packageKeyPrefix+id, &pkg)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load package: %w", common.ErrorStorage, err)
	}
	return &pkg, nil
}

// List returns all packages in custody.
func (s *CustodyService) List(ctx context.Context) ([]models.Package, error) {
	raw, err := s.kv.GetByPrefix(ctx, packageKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list packages: %w", common.ErrorStorage, err)
	}
	return decodePackages(raw)
}

// ListHistory returns the permanent pickup register.
func (s *CustodyService) ListHistory(ctx context.Context) ([]models.Package, error) {
	raw, err := s.kv.GetByPrefix(ctx, historyKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %w", common.ErrorStorage, err)
	}
	return decodePackages(raw)
}

func decodePackages(raw []json.RawMessage) ([]models.Package, error) {
	result := make([]models.Package, 0, len(raw))
	for _, data := range raw {
		var pkg models.Package
		if err := json.Unmarshal(data, &pkg); err != nil {
			return nil, fmt.Errorf("decode package: %w", err)
		}
		result = append(result, pkg)
	}
	return result, nil
}

// ValidateEvidence checks the photo constraints enforced before any upload:
// non-empty body, accepted image content type, size cap.
func ValidateEvidence(photo []byte, contentType string) error {
	if len(photo) == 0 {
		return fmt.Errorf("%w: photo is required", common.ErrorValidation)
	}
	if len(photo) > MaxEvidenceSize {
		return fmt.Errorf("%w: photo exceeds %d bytes", common.ErrorValidation, MaxEvidenceSize)
	}
	if _, ok := evidenceExtensions[normalizeContentType(contentType)]; !ok {
		return fmt.Errorf("%w: unsupported content type %q", common.ErrorValidation, contentType)
	}
	return nil
}

func normalizeContentType(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "image/jpg" { // common client alias
		ct = "image/jpeg"
	}
	return ct
}

// RecordPickup performs the exactly-once Pending -> PickedUp transition.
//
// The evidence upload must complete before the package record is mutated:
// a crash after upload leaves only an orphaned object, never a PickedUp
// package without resolvable evidence. The status is re-read under the
// per-package lock immediately before the state write, so at most one of
// two racing pickups succeeds.
func (s *CustodyService) RecordPickup(ctx context.Context, id string, actor models.Actor, photo []byte, contentType string) (*models.Package, error) {
	if err := ValidateEvidence(photo, contentType); err != nil {
		return nil, err
	}
	contentType = normalizeContentType(contentType)

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: package %s is already %s", common.ErrorInvalidState, id, pkg.Status)
	}

	now := s.now().UTC()
	objectName := fmt.Sprintf("%s-%d%s", id, now.UnixMilli(), evidenceExtensions[contentType])

	upCtx, cancel := context.WithTimeout(ctx, s.cfg.ObjectStoreTimeout)
	defer cancel()

	if err := s.objects.Upload(upCtx, objectName, photo, contentType); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(upCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: evidence upload: %w", common.ErrorTimeout, err)
		}
		return nil, fmt.Errorf("evidence upload: %w", err)
	}

	urlCtx, cancel := context.WithTimeout(ctx, s.cfg.ObjectStoreTimeout)
	defer cancel()

	signedURL, err := s.objects.SignedURL(urlCtx, objectName, s.cfg.EvidenceURLTTL)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(urlCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: evidence url: %w", common.ErrorTimeout, err)
		}
		return nil, fmt.Errorf("evidence url: %w", err)
	}

	// Compare-and-transition: re-read right before the state write. The
	// per-package lock already serializes local racers; the re-read also
	// catches writes that bypassed this process.
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: package %s is already %s", common.ErrorInvalidState, id, current.Status)
	}

	current.Status = models.StatusPickedUp
	current.PickupDate = now.Format(time.DateOnly)
	current.EvidencePhotoRef = signedURL
	current.HandledBy = actor.DisplayName()
	current.UpdatedAt = now.Format(time.RFC3339)

	// The live record and its history snapshot commit together.
	err = s.kv.SetAll(ctx, []kv.Entry{
		{Key: packageKeyPrefix + id, Value: current},
		{Key: historyKeyPrefix + id, Value: current},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: save package: %w", common.ErrorStorage, err)
	}

	s.appendAudit(ctx, actor, models.ActionPickup, subjectSummary(current))
	return current, nil
}

// UpdateStatus sets the status field directly, bypassing the evidence
// requirement. This administrative escape hatch is restricted to admin
// actors; callers surface the override flag to the client.
func (s *CustodyService) UpdateStatus(ctx context.Context, id, newStatus string, actor models.Actor) (*models.Package, error) {
	if newStatus != models.StatusPending && newStatus != models.StatusPickedUp {
		return nil, fmt.Errorf("%w: unknown status %q", common.ErrorValidation, newStatus)
	}
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: status override requires admin role", common.ErrorForbidden)
	}

	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	pkg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	pkg.Status = newStatus
	pkg.UpdatedAt = s.now().UTC().Format(time.RFC3339)

	if err := s.kv.Set(ctx, packageKeyPrefix+id, pkg); err != nil {
		return nil, fmt.Errorf("%w: save package: %w", common.ErrorStorage, err)
	}

	s.appendAudit(ctx, actor, models.ActionStatusChange, fmt.Sprintf("%s - %s", pkg.RecipientName, newStatus))
	return pkg, nil
}

// Remove deletes the live package record. The pickup history entry, if one
// exists, is retained.
func (s *CustodyService) Remove(ctx context.Context, id string, actor models.Actor) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	pkg, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.kv.Delete(ctx, packageKeyPrefix+id); err != nil {
		return fmt.Errorf("%w: delete package: %w", common.ErrorStorage, err)
	}

	s.appendAudit(ctx, actor, models.ActionDelete, subjectSummary(pkg))
	return nil
}
