package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/futig/advisor-backend/internal/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func toPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: true,
	}
}

func fromPgUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{
		Time:  t,
		Valid: !t.IsZero(),
	}
}

// encodeSources drops metadata, only what the history view needs is kept
func encodeSources(sources []entity.RetrievalResult) ([]byte, error) {
	stored := make([]entity.RetrievalResult, len(sources))
	for i, s := range sources {
		s.Metadata = nil
		stored[i] = s
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("marshal sources: %w", err)
	}
	return raw, nil
}

func decodeSources(raw []byte) ([]entity.RetrievalResult, error) {
	if len(raw) == 0 {
		return []entity.RetrievalResult{}, nil
	}

	var sources []entity.RetrievalResult
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	if sources == nil {
		sources = []entity.RetrievalResult{}
	}
	return sources, nil
}
