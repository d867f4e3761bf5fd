package testfixtures

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/persistence"
)

// MemoryStore is an in-memory implementation of every application repository.
// It mirrors the SQLite store semantics, including compare-and-set room
// transitions and per-team slot checks, and returns persistence sentinels.
type MemoryStore struct {
	mu      sync.Mutex
	rooms   map[string]application.Room
	teams   map[string]application.Team
	history []application.HistoryEntry
	daily   map[string]application.DailyStats
	backups map[string]application.Backup

	// TransitionHook, when set, runs inside ApplyTransition before the
	// precondition check. Tests use it to simulate concurrent writers.
	TransitionHook func(tr application.RoomTransition)
	// FailTransitions makes ApplyTransition fail for the listed room IDs.
	FailTransitions map[string]error
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]application.Room),
		teams:   make(map[string]application.Team),
		daily:   make(map[string]application.DailyStats),
		backups: make(map[string]application.Backup),
	}
}

// ----------------------------- Rooms -----------------------------

func (m *MemoryStore) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room.ID == "" || strings.TrimSpace(room.Name) == "" {
		return application.Room{}, persistence.ErrConstraintViolation
	}
	if _, exists := m.rooms[room.ID]; exists {
		return application.Room{}, persistence.ErrDuplicate
	}
	room.Status = application.RoomStatusFree
	room.CurrentTeamID = nil
	room.CurrentTeam = nil
	room.OccupiedSince = nil
	room.ReservedUntil = nil
	m.rooms[room.ID] = room
	return m.roomView(room), nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, id string) (application.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[id]
	if !ok {
		return application.Room{}, persistence.ErrNotFound
	}
	return m.roomView(room), nil
}

func (m *MemoryStore) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.rooms[room.ID]
	if !ok {
		return application.Room{}, persistence.ErrNotFound
	}
	stored.Name = room.Name
	stored.Description = room.Description
	stored.UpdatedAt = room.UpdatedAt
	m.rooms[room.ID] = stored
	return m.roomView(stored), nil
}

func (m *MemoryStore) DeleteRoom(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.rooms, id)
	m.history = filterHistory(m.history, func(entry application.HistoryEntry) bool {
		return entry.RoomID != id
	})
	return nil
}

func (m *MemoryStore) ListRooms(ctx context.Context) ([]application.Room, error) {
	return m.listRooms(func(application.Room) bool { return true }), nil
}

func (m *MemoryStore) ListRoomsByStatus(ctx context.Context, status application.RoomStatus) ([]application.Room, error) {
	return m.listRooms(func(room application.Room) bool { return room.Status == status }), nil
}

func (m *MemoryStore) CountRooms(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms), nil
}

func (m *MemoryStore) ApplyTransition(ctx context.Context, tr application.RoomTransition) (application.Room, error) {
	if m.TransitionHook != nil {
		m.TransitionHook(tr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.FailTransitions[tr.RoomID]; ok {
		return application.Room{}, err
	}

	room, ok := m.rooms[tr.RoomID]
	if !ok {
		return application.Room{}, persistence.ErrNotFound
	}

	if tr.ExclusiveSlot && tr.TeamID != nil {
		for id, other := range m.rooms {
			if id == tr.RoomID || other.CurrentTeamID == nil {
				continue
			}
			if *other.CurrentTeamID == *tr.TeamID && other.Status == tr.Status {
				return application.Room{}, persistence.ErrSlotTaken
			}
		}
	}

	if room.Status != tr.ExpectedStatus || !sameString(room.CurrentTeamID, tr.ExpectedTeamID) {
		return application.Room{}, persistence.ErrPreconditionFailed
	}
	if tr.ReservedUntilAtOrBefore != nil && (room.ReservedUntil == nil || room.ReservedUntil.After(*tr.ReservedUntilAtOrBefore)) {
		return application.Room{}, persistence.ErrPreconditionFailed
	}
	if tr.OccupiedSinceAtOrBefore != nil && (room.OccupiedSince == nil || room.OccupiedSince.After(*tr.OccupiedSinceAtOrBefore)) {
		return application.Room{}, persistence.ErrPreconditionFailed
	}

	room.Status = tr.Status
	room.CurrentTeamID = cloneString(tr.TeamID)
	room.OccupiedSince = cloneTime(tr.OccupiedSince)
	room.ReservedUntil = cloneTime(tr.ReservedUntil)
	room.UpdatedAt = tr.UpdatedAt
	m.rooms[room.ID] = room

	if tr.History != nil {
		m.history = append(m.history, *tr.History)
	}
	return m.roomView(room), nil
}

// SetRoomState overwrites the holder state of a room without any checks.
func (m *MemoryStore) SetRoomState(roomID string, status application.RoomStatus, teamID *string, occupiedSince, reservedUntil *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.rooms[roomID]
	room.Status = status
	room.CurrentTeamID = cloneString(teamID)
	room.OccupiedSince = cloneTime(occupiedSince)
	room.ReservedUntil = cloneTime(reservedUntil)
	m.rooms[roomID] = room
}

// ----------------------------- Teams -----------------------------

func (m *MemoryStore) CreateTeam(ctx context.Context, team application.Team) (application.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if team.ID == "" || strings.TrimSpace(team.Name) == "" {
		return application.Team{}, persistence.ErrConstraintViolation
	}
	if _, exists := m.teams[team.ID]; exists {
		return application.Team{}, persistence.ErrDuplicate
	}
	if !team.IsArchived && m.activeNameTaken(team.ID, team.Name) {
		return application.Team{}, persistence.ErrDuplicate
	}
	m.teams[team.ID] = team
	return team, nil
}

func (m *MemoryStore) GetTeam(ctx context.Context, id string) (application.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	team, ok := m.teams[id]
	if !ok {
		return application.Team{}, persistence.ErrNotFound
	}
	return team, nil
}

func (m *MemoryStore) UpdateTeam(ctx context.Context, team application.Team) (application.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[team.ID]; !ok {
		return application.Team{}, persistence.ErrNotFound
	}
	if !team.IsArchived && m.activeNameTaken(team.ID, team.Name) {
		return application.Team{}, persistence.ErrDuplicate
	}
	m.teams[team.ID] = team
	return team, nil
}

func (m *MemoryStore) DeleteTeam(ctx context.Context, id string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.teams[id]; !ok {
		return 0, persistence.ErrNotFound
	}
	freed := m.freeRoomsLocked(func(room application.Room) bool {
		return room.CurrentTeamID != nil && *room.CurrentTeamID == id
	}, at)
	m.history = filterHistory(m.history, func(entry application.HistoryEntry) bool {
		return entry.TeamID != id
	})
	delete(m.teams, id)
	return freed, nil
}

func (m *MemoryStore) ListTeams(ctx context.Context, includeArchived bool) ([]application.Team, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	teams := make([]application.Team, 0, len(m.teams))
	for _, team := range m.teams {
		if team.IsArchived && !includeArchived {
			continue
		}
		teams = append(teams, team)
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].ID < teams[j].ID
		}
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})
	return teams, nil
}

// ----------------------------- History -----------------------------

func (m *MemoryStore) ListHistory(ctx context.Context, filter application.HistoryFilter) ([]application.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryHistoryLocked(filter), nil
}

// AppendHistory adds entries directly to the ledger.
func (m *MemoryStore) AppendHistory(entries ...application.HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, entries...)
}

func (m *MemoryStore) queryHistoryLocked(filter application.HistoryFilter) []application.HistoryEntry {
	actions := make(map[application.HistoryAction]bool, len(filter.Actions))
	for _, action := range filter.Actions {
		actions[action] = true
	}

	var out []application.HistoryEntry
	for _, entry := range m.history {
		switch {
		case filter.ArchivedOnly && entry.ArchivedDate == nil:
			continue
		case !filter.ArchivedOnly && !filter.IncludeArchived && entry.ArchivedDate != nil:
			continue
		case filter.RoomID != "" && entry.RoomID != filter.RoomID:
			continue
		case filter.TeamID != "" && entry.TeamID != filter.TeamID:
			continue
		case len(actions) > 0 && !actions[entry.Action]:
			continue
		case filter.Since != nil && entry.Timestamp.Before(*filter.Since):
			continue
		}
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// ----------------------------- Daily stats -----------------------------

func (m *MemoryStore) GetDailyStats(ctx context.Context, day time.Time) (application.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.daily[day.Format(time.DateOnly)]
	if !ok {
		return application.DailyStats{}, persistence.ErrNotFound
	}
	return stats, nil
}

func (m *MemoryStore) ListDailyStats(ctx context.Context) ([]application.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]application.DailyStats, 0, len(m.daily))
	for _, stats := range m.daily {
		out = append(out, stats)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// ----------------------------- Backups -----------------------------

func (m *MemoryStore) CreateBackup(ctx context.Context, backup application.Backup) (application.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if backup.ID == "" {
		return application.Backup{}, persistence.ErrConstraintViolation
	}
	if _, exists := m.backups[backup.ID]; exists {
		return application.Backup{}, persistence.ErrDuplicate
	}
	m.backups[backup.ID] = backup
	return backup, nil
}

func (m *MemoryStore) GetBackup(ctx context.Context, id string) (application.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup, ok := m.backups[id]
	if !ok {
		return application.Backup{}, persistence.ErrNotFound
	}
	return backup, nil
}

func (m *MemoryStore) ListBackups(ctx context.Context) ([]application.Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]application.Backup, 0, len(m.backups))
	for _, backup := range m.backups {
		out = append(out, backup)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) DeleteBackup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.backups[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.backups, id)
	return nil
}

func (m *MemoryStore) RestoreSnapshot(ctx context.Context, snapshot application.Snapshot, at time.Time) (application.RestoreSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summary application.RestoreSummary

	m.history = filterHistory(m.history, func(entry application.HistoryEntry) bool {
		return entry.ArchivedDate != nil
	})
	m.freeRoomsLocked(func(application.Room) bool { return true }, at)

	keep := make(map[string]bool, len(snapshot.Teams))
	for _, team := range snapshot.Teams {
		keep[team.ID] = true
	}
	for id := range m.teams {
		if !keep[id] {
			delete(m.teams, id)
		}
	}
	m.history = filterHistory(m.history, func(entry application.HistoryEntry) bool {
		return keep[entry.TeamID]
	})
	for _, team := range snapshot.Teams {
		m.teams[team.ID] = team
		summary.Teams++
	}

	for _, snap := range snapshot.Rooms {
		room, ok := m.rooms[snap.ID]
		if !ok {
			summary.SkippedRooms++
			continue
		}
		room.Status = snap.Status
		room.CurrentTeamID = cloneString(snap.CurrentTeamID)
		room.OccupiedSince = cloneTime(snap.OccupiedSince)
		room.ReservedUntil = cloneTime(snap.ReservedUntil)
		room.UpdatedAt = at
		m.rooms[room.ID] = room
		summary.Rooms++
	}

	existing := make(map[string]int, len(m.history))
	for i, entry := range m.history {
		existing[entry.ID] = i
	}
	for _, entry := range snapshot.History {
		_, roomOK := m.rooms[entry.RoomID]
		_, teamOK := m.teams[entry.TeamID]
		if !roomOK || !teamOK {
			summary.SkippedHistory++
			continue
		}
		entry.ArchivedDate = nil
		if i, ok := existing[entry.ID]; ok {
			if m.history[i].ArchivedDate == nil {
				summary.SkippedHistory++
				continue
			}
			m.history[i] = entry
			summary.ReactivatedHistory++
			summary.History++
			continue
		}
		existing[entry.ID] = len(m.history)
		m.history = append(m.history, entry)
		summary.History++
	}
	return summary, nil
}

// ----------------------------- Archive -----------------------------

func (m *MemoryStore) ArchiveAndReset(ctx context.Context, req application.ArchiveRequest) (application.ArchiveSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summary application.ArchiveSummary
	archivedAt := req.ArchivedAt
	for i := range m.history {
		if m.history[i].ArchivedDate == nil {
			m.history[i].ArchivedDate = &archivedAt
			summary.ArchivedHistory++
		}
	}

	if req.Summarize != nil {
		since := req.DayStart
		todays := m.queryHistoryLocked(application.HistoryFilter{ArchivedOnly: true, Since: &since})
		stats := req.Summarize(todays)
		stats.Date = req.DayStart
		m.daily[req.DayStart.Format(time.DateOnly)] = stats
		summary.Stats = stats
	}

	m.freeRoomsLocked(func(application.Room) bool { return true }, req.ArchivedAt)

	if req.DeleteTeams {
		m.history = nil
		summary.DeletedTeams = len(m.teams)
		m.teams = make(map[string]application.Team)
	}
	return summary, nil
}

func (m *MemoryStore) RestoreArchivedTeams(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0)
	for id, team := range m.teams {
		if team.IsArchived {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	restored := 0
	for _, id := range ids {
		team := m.teams[id]
		if m.activeNameTaken(id, team.Name) {
			continue
		}
		team.IsArchived = false
		m.teams[id] = team
		restored++
	}
	return restored, nil
}

func (m *MemoryStore) ClearArchive(ctx context.Context, at time.Time) (application.ClearArchiveSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var summary application.ClearArchiveSummary
	before := len(m.history)
	m.history = filterHistory(m.history, func(entry application.HistoryEntry) bool {
		return entry.ArchivedDate == nil
	})
	summary.DeletedHistory = before - len(m.history)

	summary.DeletedStats = len(m.daily)
	m.daily = make(map[string]application.DailyStats)

	m.freeRoomsLocked(func(room application.Room) bool {
		if room.CurrentTeamID == nil {
			return false
		}
		team, ok := m.teams[*room.CurrentTeamID]
		return ok && team.IsArchived
	}, at)
	for id, team := range m.teams {
		if team.IsArchived {
			delete(m.teams, id)
			summary.DeletedTeams++
		}
	}
	return summary, nil
}

// ----------------------------- helpers -----------------------------

func (m *MemoryStore) listRooms(keep func(application.Room) bool) []application.Room {
	m.mu.Lock()
	defer m.mu.Unlock()

	rooms := make([]application.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		if keep(room) {
			rooms = append(rooms, m.roomView(room))
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms
}

func (m *MemoryStore) roomView(room application.Room) application.Room {
	room.CurrentTeamID = cloneString(room.CurrentTeamID)
	room.OccupiedSince = cloneTime(room.OccupiedSince)
	room.ReservedUntil = cloneTime(room.ReservedUntil)
	room.CurrentTeam = nil
	if room.CurrentTeamID != nil {
		if team, ok := m.teams[*room.CurrentTeamID]; ok {
			room.CurrentTeam = &team
		}
	}
	return room
}

func (m *MemoryStore) freeRoomsLocked(match func(application.Room) bool, at time.Time) int {
	freed := 0
	for id, room := range m.rooms {
		if !match(room) {
			continue
		}
		if room.Status != application.RoomStatusFree {
			freed++
		}
		room.Status = application.RoomStatusFree
		room.CurrentTeamID = nil
		room.OccupiedSince = nil
		room.ReservedUntil = nil
		if !at.IsZero() {
			room.UpdatedAt = at
		}
		m.rooms[id] = room
	}
	return freed
}

func (m *MemoryStore) activeNameTaken(teamID, name string) bool {
	for id, team := range m.teams {
		if id != teamID && !team.IsArchived && team.Name == name {
			return true
		}
	}
	return false
}

func filterHistory(entries []application.HistoryEntry, keep func(application.HistoryEntry) bool) []application.HistoryEntry {
	out := entries[:0:0]
	for _, entry := range entries {
		if keep(entry) {
			out = append(out, entry)
		}
	}
	return out
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

// RecordingPublisher captures every published room list.
type RecordingPublisher struct {
	mu        sync.Mutex
	snapshots [][]application.Room
}

// Publish records a copy of rooms.
func (p *RecordingPublisher) Publish(rooms []application.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	snapshot := make([]application.Room, len(rooms))
	copy(snapshot, rooms)
	p.snapshots = append(p.snapshots, snapshot)
}

// Count reports how many snapshots were published.
func (p *RecordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.snapshots)
}

// Last returns the most recent snapshot or nil.
func (p *RecordingPublisher) Last() []application.Room {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return nil
	}
	return p.snapshots[len(p.snapshots)-1]
}
