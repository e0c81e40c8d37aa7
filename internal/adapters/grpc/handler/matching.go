package handler

import (
	"context"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/talent-board/internal/core/matching"
)

// MatchingUseCase は推薦のユースケースです。
type MatchingUseCase interface {
	TopJobs(ctx context.Context, personID string, limit int) ([]matching.Match, error)
	TopMentors(ctx context.Context, personID string, limit int) ([]matching.Match, error)
}

// MatchingGrpcHandler は MatchingService を実装します。
type MatchingGrpcHandler struct {
	uc MatchingUseCase
}

// NewMatchingGrpcHandler は MatchingGrpcHandler を生成します。
func NewMatchingGrpcHandler(uc MatchingUseCase) *MatchingGrpcHandler {
	return &MatchingGrpcHandler{uc: uc}
}

var _ MatchingServer = (*MatchingGrpcHandler)(nil)

// RankJobs は person_id に合う公開中の求人を返します。
func (h *MatchingGrpcHandler) RankJobs(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.rank(ctx, in, h.uc.TopJobs)
}

// RankMentors は person_id に合う活動中のメンターを返します。
func (h *MatchingGrpcHandler) RankMentors(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return h.rank(ctx, in, h.uc.TopMentors)
}

func (h *MatchingGrpcHandler) rank(ctx context.Context, in *structpb.Struct, top func(context.Context, string, int) ([]matching.Match, error)) (*structpb.Struct, error) {
	fields := in.GetFields()
	personID := strings.TrimSpace(fields["person_id"].GetStringValue())
	if personID == "" {
		return nil, toStatusError(errMissingPersonID)
	}
	limit := int(fields["limit"].GetNumberValue())

	matches, err := top(ctx, personID, limit)
	if err != nil {
		return nil, toStatusError(err)
	}

	items := make([]any, 0, len(matches))
	for _, m := range matches {
		items = append(items, map[string]any{
			"id":    m.Candidate.ID,
			"label": m.Candidate.Label,
			"score": float64(m.Score),
		})
	}
	out, err := structpb.NewStruct(map[string]any{
		"person_id": personID,
		"matches":   items,
	})
	if err != nil {
		return nil, toStatusError(err)
	}
	return out, nil
}
