// Package vote 处理选票的校验、计票和结算。
package vote

import (
	"time"

	"github.com/palemoky/imposter/internal/apperrors"
	"github.com/palemoky/imposter/internal/game/model"
)

// Tally 统计非弃权选票，按候选人首次出现的顺序返回
func Tally(entries []model.VoteEntry) []model.TallyItem {
	index := make(map[string]int)
	var items []model.TallyItem
	for _, e := range entries {
		if e.NomineeID == nil {
			continue
		}
		id := *e.NomineeID
		if i, ok := index[id]; ok {
			items[i].Votes++
			continue
		}
		index[id] = len(items)
		items = append(items, model.TallyItem{NomineeID: id, Votes: 1})
	}
	return items
}

// Winner 返回得票最多的候选人。
// 平票时保留最先出现的候选人：只有票数严格更多才会替换。
func Winner(tally []model.TallyItem) (string, bool) {
	best := -1
	for i, item := range tally {
		if best < 0 || item.Votes > tally[best].Votes {
			best = i
		}
	}
	if best < 0 {
		return "", false
	}
	return tally[best].NomineeID, true
}

// Cast 校验并记录一张选票，只修改 session
func Cast(session *model.VoteSession, room *model.Room, voterID string, nomineeID *string) error {
	if session.Completed {
		return apperrors.ErrVoteClosed
	}
	if session.HasVoted(voterID) {
		return apperrors.ErrDuplicateVote
	}
	if !room.IsSurvivor(voterID) {
		return apperrors.ErrInvalidVoter
	}
	if nomineeID != nil && !room.IsSurvivor(*nomineeID) {
		return apperrors.ErrInvalidNominee
	}

	entry := model.VoteEntry{VoterID: voterID}
	if nomineeID != nil {
		id := *nomineeID
		entry.NomineeID = &id
	}
	session.Entries = append(session.Entries, entry)
	return nil
}

// Close 结算投票：计票、将得票最多者移出存活和内鬼名单、标记完成。
// 全部弃权时没有人被淘汰。胜负判定由调用方完成。
func Close(session *model.VoteSession, room *model.Room, now time.Time) *string {
	session.Tally = Tally(session.Entries)
	session.Completed = true
	session.CompletedAt = &now

	ejected, ok := Winner(session.Tally)
	if !ok {
		return nil
	}
	room.RemoveSurvivor(ejected)
	room.RemoveImposter(ejected)
	session.EjectedPlayerID = &ejected
	return &ejected
}
