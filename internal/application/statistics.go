package application

import (
	"math"
	"sort"
	"time"
)

// DefaultMinVisitDuration is the shortest OCCUPY to FREE span counted as a visit.
const DefaultMinVisitDuration = 3 * time.Minute

type visitPair struct {
	occupy   HistoryEntry
	free     HistoryEntry
	duration time.Duration
}

// pairVisits matches every OCCUPY, newest first, with the earliest strictly
// later FREE for the same room and team. The matching is best effort: a FREE
// may close more than one OCCUPY and unmatched OCCUPY entries are dropped.
func pairVisits(entries []HistoryEntry) (occupies []HistoryEntry, pairs []visitPair) {
	var frees []HistoryEntry
	for _, entry := range entries {
		switch entry.Action {
		case ActionOccupy:
			occupies = append(occupies, entry)
		case ActionFree:
			frees = append(frees, entry)
		}
	}
	sort.SliceStable(occupies, func(i, j int) bool {
		return occupies[i].Timestamp.After(occupies[j].Timestamp)
	})
	sort.SliceStable(frees, func(i, j int) bool {
		return frees[i].Timestamp.Before(frees[j].Timestamp)
	})

	for _, occupy := range occupies {
		for _, free := range frees {
			if free.RoomID != occupy.RoomID || free.TeamID != occupy.TeamID {
				continue
			}
			if !free.Timestamp.After(occupy.Timestamp) {
				continue
			}
			pairs = append(pairs, visitPair{occupy: occupy, free: free, duration: free.Timestamp.Sub(occupy.Timestamp)})
			break
		}
	}
	return occupies, pairs
}

// ComputeRoomStats derives visit statistics for roomID from its live history.
func ComputeRoomStats(roomID string, entries []HistoryEntry, minDuration time.Duration) RoomStats {
	if minDuration <= 0 {
		minDuration = DefaultMinVisitDuration
	}
	stats := RoomStats{RoomID: roomID}

	occupies, pairs := pairVisits(entries)
	if len(occupies) > 0 {
		last := occupies[0].Timestamp
		stats.LastOccupiedAt = &last
	}

	var total time.Duration
	for _, pair := range pairs {
		if pair.duration < minDuration {
			continue
		}
		total += pair.duration
		stats.TotalVisits++
	}
	if stats.TotalVisits > 0 {
		average := int(math.Round(total.Minutes() / float64(stats.TotalVisits)))
		stats.AverageOccupationMinutes = &average
	}
	return stats
}

// ComputeVisits lists valid visits newest first. A visit is valid when its
// duration rounded to whole minutes reaches minDuration.
func ComputeVisits(entries []HistoryEntry, minDuration time.Duration) []Visit {
	if minDuration <= 0 {
		minDuration = DefaultMinVisitDuration
	}
	threshold := int(math.Round(minDuration.Minutes()))

	_, pairs := pairVisits(entries)
	visits := make([]Visit, 0, len(pairs))
	for _, pair := range pairs {
		minutes := int(math.Round(pair.duration.Minutes()))
		if minutes < threshold {
			continue
		}
		visits = append(visits, Visit{
			RoomID:          pair.occupy.RoomID,
			TeamID:          pair.occupy.TeamID,
			Start:           pair.occupy.Timestamp,
			End:             pair.free.Timestamp,
			DurationMinutes: minutes,
		})
	}
	return visits
}

// SummarizeDay builds the daily rollup for entries archived on day. The most
// popular room is the one with the most events; on a tie the room that reached
// the winning count first in timestamp order wins.
func SummarizeDay(day time.Time, entries []HistoryEntry) DailyStats {
	stats := DailyStats{Date: day, TeamActivity: make(map[string]int)}

	ordered := make([]HistoryEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	roomCounts := make(map[string]int)
	best := 0
	for _, entry := range ordered {
		switch entry.Action {
		case ActionOccupy:
			stats.TotalOccupations++
		case ActionReserve:
			stats.TotalReservations++
		}
		stats.TeamActivity[entry.TeamID]++

		roomCounts[entry.RoomID]++
		if count := roomCounts[entry.RoomID]; count > best {
			best = count
			roomID := entry.RoomID
			stats.MostPopularRoomID = &roomID
		}
	}
	return stats
}

// ComputeCurrentStats aggregates the live room states and active team count.
func ComputeCurrentStats(rooms []Room, activeTeams int) CurrentStats {
	stats := CurrentStats{TotalRooms: len(rooms), ActiveTeams: activeTeams}
	for _, room := range rooms {
		switch room.Status {
		case RoomStatusFree:
			stats.FreeRooms++
		case RoomStatusOccupied:
			stats.OccupiedRooms++
		case RoomStatusReserved:
			stats.ReservedRooms++
		case RoomStatusOffline:
			stats.OfflineRooms++
		}
	}
	return stats
}
