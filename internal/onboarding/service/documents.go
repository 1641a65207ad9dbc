package service

import (
	"context"
	"fmt"
	"strings"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	dErrors "zerina/pkg/domain-errors"
	"zerina/pkg/platform/audit"
)

// Named error conditions for document reassignment. The transport
// layer surfaces these verbatim so clients can offer the right
// remediation.
const (
	ErrMsgInvalidDocumentIDs = "invalid_document_ids"
	ErrMsgDocumentInUse      = "document_in_use"
)

// checkDocuments validates the desired attachment set without touching
// anything: every id must reference a document owned by userID, and
// none may be attached to a different application. Validation runs
// before any state is mutated so a rejected document set aborts the
// submission cleanly.
func (s *Service) checkDocuments(ctx context.Context, userID domain.UserID, appID domain.ApplicationID, desired []domain.DocumentID) ([]*models.VendorDocument, error) {
	found, missing, err := s.docs.FindByIDsForUser(ctx, userID, desired)
	if err != nil {
		return nil, fmt.Errorf("resolve documents: %w", err)
	}
	if len(missing) > 0 {
		ids := make([]string, len(missing))
		for i, docID := range missing {
			ids[i] = docID.String()
		}
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s: %s", ErrMsgInvalidDocumentIDs, strings.Join(ids, ","))
	}

	// A document attached to another application can never be moved
	// here, not even by its owner.
	for _, doc := range found {
		if doc.Attached() && !doc.AttachedTo(appID) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "%s: %s", ErrMsgDocumentInUse, doc.ID)
		}
	}
	return found, nil
}

// applyReassign moves the application's attachment set to the
// validated documents. Idempotent: re-running with the same set is a
// no-op. Runs inside the caller's transaction so detach and attach
// land together or not at all.
//
// An empty desired set detaches everything; callers that want "leave
// attachments untouched" resolve the current set first (the omitted vs
// explicitly-empty distinction is settled at the request boundary).
func (s *Service) applyReassign(ctx context.Context, userID domain.UserID, appID domain.ApplicationID, desired []*models.VendorDocument) error {
	current, err := s.docs.ListByApplication(ctx, appID)
	if err != nil {
		return fmt.Errorf("list attached documents: %w", err)
	}

	moved := 0
	desiredSet := make(map[domain.DocumentID]struct{}, len(desired))
	for _, doc := range desired {
		desiredSet[doc.ID] = struct{}{}
	}
	for _, doc := range current {
		if _, keep := desiredSet[doc.ID]; keep {
			continue
		}
		if err := s.docs.Detach(ctx, doc.ID); err != nil {
			return fmt.Errorf("detach document %s: %w", doc.ID, err)
		}
		moved++
	}
	for _, doc := range desired {
		if doc.AttachedTo(appID) {
			continue
		}
		if err := s.docs.Attach(ctx, doc.ID, appID); err != nil {
			return fmt.Errorf("attach document %s: %w", doc.ID, err)
		}
		moved++
	}

	if moved > 0 {
		s.logAudit(ctx, string(audit.EventDocumentsReassigned),
			"user_id", userID.String(),
			"application_id", appID.String(),
		)
	}
	return nil
}

// resolveDocumentIDs decides the target attachment set for a
// submission: explicit ids when the request carried them, otherwise
// the current attachments so an omitted field preserves state.
func (s *Service) resolveDocumentIDs(ctx context.Context, req models.SubmitRequest, appID domain.ApplicationID) ([]domain.DocumentID, error) {
	if req.DocumentIDsProvided {
		return dedupeDocumentIDs(req.DocumentIDs), nil
	}
	current, err := s.docs.ListByApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("list attached documents: %w", err)
	}
	ids := make([]domain.DocumentID, len(current))
	for i, doc := range current {
		ids[i] = doc.ID
	}
	return ids, nil
}

func dedupeDocumentIDs(ids []domain.DocumentID) []domain.DocumentID {
	if len(ids) < 2 {
		return ids
	}
	seen := make(map[domain.DocumentID]struct{}, len(ids))
	out := make([]domain.DocumentID, 0, len(ids))
	for _, docID := range ids {
		if _, dup := seen[docID]; dup {
			continue
		}
		seen[docID] = struct{}{}
		out = append(out, docID)
	}
	return out
}
