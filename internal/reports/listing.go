package reports

import (
	"context"
	"fmt"
	"strings"

	"github.com/topaplus/commandcenter/internal/insights"
	"github.com/topaplus/commandcenter/pkg/pagination"
)

// StageQuery pages through the records of one funnel stage. A cursor, when
// given, carries the source, stage and scope and overrides the other fields.
type StageQuery struct {
	Query
	Stage    string
	Cursor   string
	PageSize int
}

// StagePage is one page of a stage listing.
type StagePage struct {
	Meta
	Stage      insights.Stage       `json:"stage"`
	Total      int                  `json:"total"`
	Offset     int                  `json:"offset"`
	Rows       []insights.RecordRow `json:"rows"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// StageRecords lists a stage of the scoped population. Cursors are bound to
// the snapshot they were issued from: after a refresh they are rejected.
func (s *Service) StageRecords(ctx context.Context, sq StageQuery) (StagePage, error) {
	offset, size := 0, sq.PageSize
	var cur *pagination.Cursor
	if strings.TrimSpace(sq.Cursor) != "" {
		c, err := pagination.DecodeCursor(sq.Cursor)
		if err != nil {
			return StagePage{}, fmt.Errorf("%w: %v", ErrCursorInvalid, err)
		}
		// The cursor fixes the partition; asking for the other Generated
		// reading mid-listing would page through a different set.
		if sq.GeneratedExcludesPaid && !c.Gx {
			return StagePage{}, fmt.Errorf("%w: generated_excludes_paid differs from the first page", ErrCursorInvalid)
		}
		cur = c
		sq.Query = Query{GeneratedExcludesPaid: c.Gx, Source: c.Src, Start: c.Sd, End: c.Ed, Agent: c.Ag, Company: c.Co, Squad: c.Sq, Mode: c.M}
		sq.Stage = c.St
		offset, size = c.Off, c.Ps
	}
	if size <= 0 {
		size = s.pageSize
	}
	if size > s.maxPageSize {
		size = s.maxPageSize
	}

	stage, err := insights.ParseStage(sq.Stage)
	if err != nil {
		return StagePage{}, err
	}
	f, err := sq.Filter()
	if err != nil {
		return StagePage{}, err
	}
	snap, err := s.snaps.Get(ctx, sq.Source)
	if err != nil {
		return StagePage{}, err
	}
	scope := scopeHash(f, sq.GeneratedExcludesPaid)
	if cur != nil && cur.Sid != snap.ID {
		return StagePage{}, fmt.Errorf("%w: source %q was reloaded since the cursor was issued", ErrCursorInvalid, sq.Source)
	}
	if cur != nil && cur.Fh != scope {
		return StagePage{}, fmt.Errorf("%w: cursor does not match its scope", ErrCursorInvalid)
	}

	st := insights.Partition(f.Apply(snap.Records), insights.ClassifyOptions{GeneratedExcludesPaid: sq.GeneratedExcludesPaid})
	all := st.Get(stage)
	page := StagePage{Meta: meta(snap), Stage: stage, Total: len(all), Offset: offset}
	if offset >= len(all) {
		page.Rows = []insights.RecordRow{}
		return page, nil
	}
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	page.Rows = insights.FormatRecords(all[offset:end], s.runner.Reasons)

	if end < len(all) {
		next, err := pagination.EncodeCursor(pagination.Cursor{
			V:   1,
			Src: snap.Source,
			Sid: snap.ID,
			St:  string(stage),
			Fh:  scope,
			Off: pagination.NextOffset(offset, end-offset),
			Ps:  size,
			Sd:  sq.Start,
			Ed:  sq.End,
			Ag:  f.Agent,
			Co:  f.Company,
			Sq:  f.Squad,
			M:   string(f.Mode),
			Gx:  sq.GeneratedExcludesPaid,
		})
		if err != nil {
			return StagePage{}, fmt.Errorf("%w: %v", ErrCursorBuild, err)
		}
		page.NextCursor = next
	}
	return page, nil
}

// scopeHash binds a cursor to the filter and to the Generated reading.
func scopeHash(f insights.Filter, generatedExcludesPaid bool) string {
	if generatedExcludesPaid {
		return f.Hash() + "-gx"
	}
	return f.Hash()
}
