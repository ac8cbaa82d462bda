package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencylabel"
	"github.com/agenceo/agenceo/modules/crm/domain/entities/agencystatus"
	"github.com/agenceo/agenceo/pkg/composables"
	"github.com/agenceo/agenceo/pkg/eventbus"
	"github.com/agenceo/agenceo/pkg/ratelimit"
	"github.com/agenceo/agenceo/pkg/serrors"
)

const (
	configScope = "admin-config"

	ConfigActionSyncLabels   = "sync_labels"
	ConfigActionSyncStatuses = "sync_statuses"
)

type StatusInput struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

type ConfigRequest struct {
	Action    string        `json:"action"`
	RequestID string        `json:"request_id"`
	AgencyID  string        `json:"agency_id"`
	Kind      string        `json:"kind"`
	Labels    []string      `json:"labels"`
	Statuses  []StatusInput `json:"statuses"`
}

type ConfigResult struct {
	RequestID string   `json:"request_id"`
	OK        bool     `json:"ok"`
	StatusIDs []string `json:"status_ids,omitempty"`
}

// ConfigService synchronizes per-agency label lists and the status list as a
// set-diff against the submitted state.
type ConfigService struct {
	labels    agencylabel.Repository
	statuses  agencystatus.Repository
	guard     *AccessGuard
	limiter   ratelimit.Checker
	publisher eventbus.EventBus
	inTx      func(context.Context, func(context.Context) error) error
}

func NewConfigService(
	labels agencylabel.Repository,
	statuses agencystatus.Repository,
	guard *AccessGuard,
	limiter ratelimit.Checker,
	publisher eventbus.EventBus,
) *ConfigService {
	return &ConfigService{
		labels:    labels,
		statuses:  statuses,
		guard:     guard,
		limiter:   limiter,
		publisher: publisher,
		inTx:      composables.InTx,
	}
}

func (s *ConfigService) HandleAction(ctx context.Context, req ConfigRequest) (*ConfigResult, error) {
	caller, err := composables.UseCaller(ctx)
	if err != nil {
		return nil, serrors.AuthRequired()
	}
	if err := s.limiter.Check(ctx, configScope, caller.UserID.String()); err != nil {
		return nil, err
	}

	agencyID, err := s.guard.EnsureAgencyAccess(caller, req.AgencyID)
	if err != nil {
		return nil, err
	}

	switch req.Action {
	case ConfigActionSyncLabels:
		return s.syncLabels(ctx, agencyID, req)
	case ConfigActionSyncStatuses:
		return s.syncStatuses(ctx, agencyID, req)
	default:
		return nil, serrors.ActionRequired()
	}
}

func (s *ConfigService) syncLabels(ctx context.Context, agencyID uuid.UUID, req ConfigRequest) (*ConfigResult, error) {
	kind := agencylabel.Kind(strings.TrimSpace(req.Kind))
	if !kind.IsValid() {
		return nil, serrors.InvalidPayload("unknown label kind")
	}

	// Desired state: trimmed, case-insensitively deduplicated, first
	// occurrence wins its position.
	desired := make([]string, 0, len(req.Labels))
	seen := make(map[string]struct{}, len(req.Labels))
	for _, raw := range req.Labels {
		label := strings.TrimSpace(raw)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		desired = append(desired, label)
	}

	err := s.inTx(ctx, func(txCtx context.Context) error {
		existing, err := s.labels.ListByAgency(txCtx, agencyID, kind)
		if err != nil {
			return serrors.DBReadFailed(err)
		}

		for i, label := range desired {
			if err := s.labels.Upsert(txCtx, agencyID, kind, label, i+1); err != nil {
				return serrors.DBWriteFailed("failed to upsert label")
			}
		}

		var absent []string
		for _, row := range existing {
			if _, ok := seen[strings.ToLower(row.Label)]; !ok {
				absent = append(absent, row.Label)
			}
		}
		if err := s.labels.DeleteByLabels(txCtx, agencyID, kind, absent); err != nil {
			return serrors.DBWriteFailed("failed to delete labels")
		}
		return nil
	})
	if err != nil {
		if _, ok := serrors.As(err); ok {
			return nil, err
		}
		return nil, serrors.DBWriteFailed("label sync failed")
	}

	s.publisher.Publish(ConfigSyncedEvent{AgencyID: agencyID, Kind: string(kind)})
	return &ConfigResult{RequestID: req.RequestID, OK: true}, nil
}

func (s *ConfigService) syncStatuses(ctx context.Context, agencyID uuid.UUID, req ConfigRequest) (*ConfigResult, error) {
	if len(req.Statuses) == 0 {
		return nil, serrors.ConfigInvalid("status list must not be empty")
	}
	for _, input := range req.Statuses {
		if !agencystatus.Category(input.Category).IsValid() {
			return nil, serrors.ConfigInvalid("unknown status category: " + input.Category)
		}
	}

	var statusIDs []string
	err := s.inTx(ctx, func(txCtx context.Context) error {
		existing, err := s.statuses.ListByAgency(txCtx, agencyID)
		if err != nil {
			return serrors.DBReadFailed(err)
		}

		byID := make(map[uuid.UUID]*agencystatus.Status, len(existing))
		byLabel := make(map[string]*agencystatus.Status, len(existing))
		for _, row := range existing {
			byID[row.ID()] = row
			byLabel[strings.ToLower(row.Label())] = row
		}

		// Stable ids: match by explicit id, else case-insensitive label,
		// else create fresh. The first submitted status is the default.
		kept := make(map[uuid.UUID]struct{}, len(req.Statuses))
		statusIDs = make([]string, 0, len(req.Statuses))
		for i, input := range req.Statuses {
			label := strings.TrimSpace(input.Label)
			if label == "" {
				return serrors.ConfigInvalid("status label must not be empty")
			}

			id := uuid.Nil
			if parsed, err := uuid.Parse(strings.TrimSpace(input.ID)); err == nil {
				if _, ok := byID[parsed]; ok {
					id = parsed
				}
			}
			if id == uuid.Nil {
				if match, ok := byLabel[strings.ToLower(label)]; ok {
					id = match.ID()
				} else {
					id = uuid.New()
				}
			}

			data := agencystatus.New(
				agencyID,
				label,
				agencystatus.Category(input.Category),
				agencystatus.WithID(id),
				agencystatus.WithSortOrder(i+1),
				agencystatus.WithIsDefault(i == 0),
			)
			if err := s.statuses.Upsert(txCtx, data); err != nil {
				return serrors.DBWriteFailed("failed to upsert status")
			}
			kept[id] = struct{}{}
			statusIDs = append(statusIDs, id.String())
		}

		var absent []uuid.UUID
		for _, row := range existing {
			if _, ok := kept[row.ID()]; !ok {
				absent = append(absent, row.ID())
			}
		}
		if err := s.statuses.DeleteByIDs(txCtx, agencyID, absent); err != nil {
			return serrors.DBWriteFailed("failed to delete statuses")
		}
		return nil
	})
	if err != nil {
		if _, ok := serrors.As(err); ok {
			return nil, err
		}
		return nil, serrors.DBWriteFailed("status sync failed")
	}

	s.publisher.Publish(ConfigSyncedEvent{AgencyID: agencyID, Kind: "statuses"})
	return &ConfigResult{RequestID: req.RequestID, OK: true, StatusIDs: statusIDs}, nil
}
