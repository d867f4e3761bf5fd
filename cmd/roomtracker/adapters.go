package main

import (
	"context"
	"time"

	"github.com/example/room-tracker/internal/application"
	"github.com/example/room-tracker/internal/persistence"
)

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) DeleteRoom(ctx context.Context, id string) error {
	return a.repo.DeleteRoom(ctx, id)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(models), nil
}

func (a *roomRepositoryAdapter) ListRoomsByStatus(ctx context.Context, status application.RoomStatus) ([]application.Room, error) {
	models, err := a.repo.ListRoomsByStatus(ctx, string(status))
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(models), nil
}

func (a *roomRepositoryAdapter) CountRooms(ctx context.Context) (int, error) {
	return a.repo.CountRooms(ctx)
}

func (a *roomRepositoryAdapter) ApplyTransition(ctx context.Context, tr application.RoomTransition) (application.Room, error) {
	model := persistence.RoomTransition{
		RoomID:                  tr.RoomID,
		ExpectedStatus:          string(tr.ExpectedStatus),
		ExpectedTeamID:          cloneString(tr.ExpectedTeamID),
		ReservedUntilAtOrBefore: cloneTime(tr.ReservedUntilAtOrBefore),
		OccupiedSinceAtOrBefore: cloneTime(tr.OccupiedSinceAtOrBefore),
		Status:                  string(tr.Status),
		TeamID:                  cloneString(tr.TeamID),
		OccupiedSince:           cloneTime(tr.OccupiedSince),
		ReservedUntil:           cloneTime(tr.ReservedUntil),
		UpdatedAt:               tr.UpdatedAt,
		ExclusiveSlot:           tr.ExclusiveSlot,
	}
	if tr.History != nil {
		entry := toPersistenceHistory(*tr.History)
		model.History = &entry
	}

	stored, err := a.repo.ApplyTransition(ctx, model)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

type teamRepositoryAdapter struct {
	repo persistence.TeamRepository
}

func newTeamRepositoryAdapter(repo persistence.TeamRepository) *teamRepositoryAdapter {
	return &teamRepositoryAdapter{repo: repo}
}

func (a *teamRepositoryAdapter) CreateTeam(ctx context.Context, team application.Team) (application.Team, error) {
	if err := a.repo.CreateTeam(ctx, toPersistenceTeam(team)); err != nil {
		return application.Team{}, err
	}
	return a.GetTeam(ctx, team.ID)
}

func (a *teamRepositoryAdapter) GetTeam(ctx context.Context, id string) (application.Team, error) {
	stored, err := a.repo.GetTeam(ctx, id)
	if err != nil {
		return application.Team{}, err
	}
	return toApplicationTeam(stored), nil
}

func (a *teamRepositoryAdapter) UpdateTeam(ctx context.Context, team application.Team) (application.Team, error) {
	if err := a.repo.UpdateTeam(ctx, toPersistenceTeam(team)); err != nil {
		return application.Team{}, err
	}
	return a.GetTeam(ctx, team.ID)
}

func (a *teamRepositoryAdapter) DeleteTeam(ctx context.Context, id string, at time.Time) (int, error) {
	return a.repo.DeleteTeam(ctx, id, at)
}

func (a *teamRepositoryAdapter) ListTeams(ctx context.Context, includeArchived bool) ([]application.Team, error) {
	models, err := a.repo.ListTeams(ctx, includeArchived)
	if err != nil {
		return nil, err
	}
	return toApplicationTeams(models), nil
}

type historyRepositoryAdapter struct {
	repo persistence.HistoryRepository
}

func newHistoryRepositoryAdapter(repo persistence.HistoryRepository) *historyRepositoryAdapter {
	return &historyRepositoryAdapter{repo: repo}
}

func (a *historyRepositoryAdapter) ListHistory(ctx context.Context, filter application.HistoryFilter) ([]application.HistoryEntry, error) {
	actions := make([]string, 0, len(filter.Actions))
	for _, action := range filter.Actions {
		actions = append(actions, string(action))
	}
	models, err := a.repo.ListHistory(ctx, persistence.HistoryFilter{
		RoomID:          filter.RoomID,
		TeamID:          filter.TeamID,
		Actions:         actions,
		IncludeArchived: filter.IncludeArchived,
		ArchivedOnly:    filter.ArchivedOnly,
		Since:           cloneTime(filter.Since),
		Limit:           filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	return toApplicationHistory(models), nil
}

type dailyStatsRepositoryAdapter struct {
	repo persistence.DailyStatsRepository
}

func newDailyStatsRepositoryAdapter(repo persistence.DailyStatsRepository) *dailyStatsRepositoryAdapter {
	return &dailyStatsRepositoryAdapter{repo: repo}
}

func (a *dailyStatsRepositoryAdapter) GetDailyStats(ctx context.Context, day time.Time) (application.DailyStats, error) {
	stored, err := a.repo.GetDailyStats(ctx, day)
	if err != nil {
		return application.DailyStats{}, err
	}
	return toApplicationDailyStats(stored), nil
}

func (a *dailyStatsRepositoryAdapter) ListDailyStats(ctx context.Context) ([]application.DailyStats, error) {
	models, err := a.repo.ListDailyStats(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.DailyStats, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationDailyStats(model))
	}
	return out, nil
}

type backupRepositoryAdapter struct {
	repo persistence.BackupRepository
}

func newBackupRepositoryAdapter(repo persistence.BackupRepository) *backupRepositoryAdapter {
	return &backupRepositoryAdapter{repo: repo}
}

func (a *backupRepositoryAdapter) CreateBackup(ctx context.Context, backup application.Backup) (application.Backup, error) {
	if err := a.repo.CreateBackup(ctx, persistence.Backup{
		ID:          backup.ID,
		Name:        backup.Name,
		Description: backup.Description,
		CreatedAt:   backup.CreatedAt,
		Data:        backup.Data,
	}); err != nil {
		return application.Backup{}, err
	}
	return a.GetBackup(ctx, backup.ID)
}

func (a *backupRepositoryAdapter) GetBackup(ctx context.Context, id string) (application.Backup, error) {
	stored, err := a.repo.GetBackup(ctx, id)
	if err != nil {
		return application.Backup{}, err
	}
	return toApplicationBackup(stored), nil
}

func (a *backupRepositoryAdapter) ListBackups(ctx context.Context) ([]application.Backup, error) {
	models, err := a.repo.ListBackups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]application.Backup, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationBackup(model))
	}
	return out, nil
}

func (a *backupRepositoryAdapter) DeleteBackup(ctx context.Context, id string) error {
	return a.repo.DeleteBackup(ctx, id)
}

func (a *backupRepositoryAdapter) RestoreSnapshot(ctx context.Context, snapshot application.Snapshot, at time.Time) (application.RestoreSummary, error) {
	model := persistence.Snapshot{
		Teams:   make([]persistence.Team, 0, len(snapshot.Teams)),
		Rooms:   make([]persistence.Room, 0, len(snapshot.Rooms)),
		History: make([]persistence.HistoryEntry, 0, len(snapshot.History)),
	}
	for _, team := range snapshot.Teams {
		model.Teams = append(model.Teams, toPersistenceTeam(team))
	}
	for _, room := range snapshot.Rooms {
		model.Rooms = append(model.Rooms, toPersistenceRoom(room))
	}
	for _, entry := range snapshot.History {
		model.History = append(model.History, toPersistenceHistory(entry))
	}

	summary, err := a.repo.RestoreSnapshot(ctx, model, at)
	if err != nil {
		return application.RestoreSummary{}, err
	}
	return application.RestoreSummary{
		Teams:              summary.Teams,
		Rooms:              summary.Rooms,
		History:            summary.History,
		SkippedRooms:       summary.SkippedRooms,
		SkippedHistory:     summary.SkippedHistory,
		ReactivatedHistory: summary.ReactivatedHistory,
	}, nil
}

type archiveRepositoryAdapter struct {
	repo persistence.ArchiveRepository
}

func newArchiveRepositoryAdapter(repo persistence.ArchiveRepository) *archiveRepositoryAdapter {
	return &archiveRepositoryAdapter{repo: repo}
}

func (a *archiveRepositoryAdapter) ArchiveAndReset(ctx context.Context, req application.ArchiveRequest) (application.ArchiveSummary, error) {
	model := persistence.ArchiveRequest{
		ArchivedAt:  req.ArchivedAt,
		DayStart:    req.DayStart,
		DeleteTeams: req.DeleteTeams,
	}
	if req.Summarize != nil {
		model.Summarize = func(entries []persistence.HistoryEntry) persistence.DailyStats {
			return toPersistenceDailyStats(req.Summarize(toApplicationHistory(entries)))
		}
	}

	summary, err := a.repo.ArchiveAndReset(ctx, model)
	if err != nil {
		return application.ArchiveSummary{}, err
	}
	return application.ArchiveSummary{
		ArchivedHistory: summary.ArchivedHistory,
		DeletedTeams:    summary.DeletedTeams,
		Stats:           toApplicationDailyStats(summary.Stats),
	}, nil
}

func (a *archiveRepositoryAdapter) RestoreArchivedTeams(ctx context.Context) (int, error) {
	return a.repo.RestoreArchivedTeams(ctx)
}

func (a *archiveRepositoryAdapter) ClearArchive(ctx context.Context, at time.Time) (application.ClearArchiveSummary, error) {
	summary, err := a.repo.ClearArchive(ctx, at)
	if err != nil {
		return application.ClearArchiveSummary{}, err
	}
	return application.ClearArchiveSummary{
		DeletedHistory: summary.DeletedHistory,
		DeletedStats:   summary.DeletedStats,
		DeletedTeams:   summary.DeletedTeams,
	}, nil
}

func toApplicationTeam(model persistence.Team) application.Team {
	return application.Team{
		ID:         model.ID,
		Name:       model.Name,
		Color:      model.Color,
		CreatedAt:  model.CreatedAt,
		IsArchived: model.IsArchived,
	}
}

func toApplicationTeams(models []persistence.Team) []application.Team {
	if len(models) == 0 {
		return nil
	}
	teams := make([]application.Team, 0, len(models))
	for _, model := range models {
		teams = append(teams, toApplicationTeam(model))
	}
	return teams
}

func toPersistenceTeam(team application.Team) persistence.Team {
	return persistence.Team{
		ID:         team.ID,
		Name:       team.Name,
		Color:      team.Color,
		CreatedAt:  team.CreatedAt,
		IsArchived: team.IsArchived,
	}
}

func toApplicationRoom(model persistence.Room) application.Room {
	room := application.Room{
		ID:            model.ID,
		Name:          model.Name,
		Description:   model.Description,
		Status:        application.RoomStatus(model.Status),
		CurrentTeamID: cloneString(model.CurrentTeamID),
		OccupiedSince: cloneTime(model.OccupiedSince),
		ReservedUntil: cloneTime(model.ReservedUntil),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	if model.CurrentTeam != nil {
		team := toApplicationTeam(*model.CurrentTeam)
		room.CurrentTeam = &team
	}
	return room
}

func toApplicationRooms(models []persistence.Room) []application.Room {
	if len(models) == 0 {
		return nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:            room.ID,
		Name:          room.Name,
		Description:   room.Description,
		Status:        string(room.Status),
		CurrentTeamID: cloneString(room.CurrentTeamID),
		OccupiedSince: cloneTime(room.OccupiedSince),
		ReservedUntil: cloneTime(room.ReservedUntil),
		CreatedAt:     room.CreatedAt,
		UpdatedAt:     room.UpdatedAt,
	}
}

func toApplicationHistory(models []persistence.HistoryEntry) []application.HistoryEntry {
	if len(models) == 0 {
		return nil
	}
	entries := make([]application.HistoryEntry, 0, len(models))
	for _, model := range models {
		entry := application.HistoryEntry{
			ID:           model.ID,
			RoomID:       model.RoomID,
			TeamID:       model.TeamID,
			Action:       application.HistoryAction(model.Action),
			Timestamp:    model.Timestamp,
			NewStatus:    application.RoomStatus(model.NewStatus),
			ArchivedDate: cloneTime(model.ArchivedDate),
		}
		if model.PreviousStatus != nil {
			previous := application.RoomStatus(*model.PreviousStatus)
			entry.PreviousStatus = &previous
		}
		entries = append(entries, entry)
	}
	return entries
}

func toPersistenceHistory(entry application.HistoryEntry) persistence.HistoryEntry {
	model := persistence.HistoryEntry{
		ID:           entry.ID,
		RoomID:       entry.RoomID,
		TeamID:       entry.TeamID,
		Action:       string(entry.Action),
		Timestamp:    entry.Timestamp,
		NewStatus:    string(entry.NewStatus),
		ArchivedDate: cloneTime(entry.ArchivedDate),
	}
	if entry.PreviousStatus != nil {
		previous := string(*entry.PreviousStatus)
		model.PreviousStatus = &previous
	}
	return model
}

func toApplicationDailyStats(model persistence.DailyStats) application.DailyStats {
	return application.DailyStats{
		Date:              model.Date,
		TotalOccupations:  model.TotalOccupations,
		TotalReservations: model.TotalReservations,
		MostPopularRoomID: cloneString(model.MostPopularRoomID),
		TeamActivity:      model.TeamActivity,
	}
}

func toPersistenceDailyStats(stats application.DailyStats) persistence.DailyStats {
	return persistence.DailyStats{
		Date:              stats.Date,
		TotalOccupations:  stats.TotalOccupations,
		TotalReservations: stats.TotalReservations,
		MostPopularRoomID: cloneString(stats.MostPopularRoomID),
		TeamActivity:      stats.TeamActivity,
	}
}

func toApplicationBackup(model persistence.Backup) application.Backup {
	return application.Backup{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		CreatedAt:   model.CreatedAt,
		Data:        model.Data,
	}
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
