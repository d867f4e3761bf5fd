package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// BackupService snapshots and restores the domain and runs the archive
// maintenance operations.
type BackupService struct {
	backups     BackupRepository
	archive     ArchiveRepository
	rooms       RoomRepository
	teams       TeamRepository
	history     HistoryRepository
	broadcaster roomBroadcaster
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// BackupServiceDeps groups the repositories used by BackupService.
type BackupServiceDeps struct {
	Backups   BackupRepository
	Archive   ArchiveRepository
	Rooms     RoomRepository
	Teams     TeamRepository
	History   HistoryRepository
	Publisher RoomPublisher
}

// NewBackupService constructs a backup service with the provided dependencies.
func NewBackupService(deps BackupServiceDeps, idGenerator func() string, now func() time.Time) *BackupService {
	return NewBackupServiceWithLogger(deps, idGenerator, now, nil)
}

// NewBackupServiceWithLogger constructs a backup service with a specified logger.
func NewBackupServiceWithLogger(deps BackupServiceDeps, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BackupService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BackupService{
		backups:     deps.Backups,
		archive:     deps.Archive,
		rooms:       deps.Rooms,
		teams:       deps.Teams,
		history:     deps.History,
		broadcaster: roomBroadcaster{rooms: deps.Rooms, publisher: deps.Publisher},
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BackupService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BackupService", operation, attrs...)
}

// CreateBackup snapshots all teams, all rooms and live history.
func (s *BackupService) CreateBackup(ctx context.Context, principal Principal, input BackupInput) (summary BackupSummary, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBackup", "principal_id", principal.ActorID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create backup", err)
			return
		}
		logger.InfoContext(ctx, "backup created",
			"backup_id", summary.ID,
			"teams", summary.Teams,
			"rooms", summary.Rooms,
			"history", summary.History,
		)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr := &ValidationError{}
		vErr.add("name", "name is required")
		err = vErr
		return
	}

	var snapshot Snapshot
	snapshot.Teams, err = s.teams.ListTeams(ctx, true)
	if err != nil {
		return
	}
	snapshot.Rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		return
	}
	snapshot.History, err = s.history.ListHistory(ctx, HistoryFilter{})
	if err != nil {
		return
	}

	var data []byte
	data, err = encodeSnapshot(snapshot)
	if err != nil {
		return
	}

	var backup Backup
	backup, err = s.backups.CreateBackup(ctx, Backup{
		ID:          s.idGenerator(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CreatedAt:   s.now().UTC(),
		Data:        data,
	})
	if err != nil {
		err = mapStoreError(err, "backup")
		return
	}

	summary = summarizeBackup(backup, snapshot)
	return
}

// ListBackups returns all backups, newest first, with their content counts.
func (s *BackupService) ListBackups(ctx context.Context, principal Principal) (summaries []BackupSummary, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ListBackups", "principal_id", principal.ActorID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to list backups", err)
		}
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var backups []Backup
	backups, err = s.backups.ListBackups(ctx)
	if err != nil {
		return
	}
	summaries = make([]BackupSummary, 0, len(backups))
	for _, backup := range backups {
		snapshot, derr := decodeSnapshot(backup.Data)
		if derr != nil {
			logger.WarnContext(ctx, "backup payload is unreadable", "backup_id", backup.ID, "error", derr)
		}
		summaries = append(summaries, summarizeBackup(backup, snapshot))
	}
	return
}

// DeleteBackup removes a backup.
func (s *BackupService) DeleteBackup(ctx context.Context, principal Principal, backupID string) (err error) {
	if s == nil {
		return fmt.Errorf("BackupService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteBackup", "principal_id", principal.ActorID, "backup_id", backupID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete backup", err)
			return
		}
		logger.InfoContext(ctx, "backup deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if err = s.backups.DeleteBackup(ctx, backupID); err != nil {
		err = mapStoreError(err, "backup")
	}
	return
}

// RestoreBackup replaces teams, room states and live history with the backup
// contents in one store transaction. Failures are reported in the result; the
// returned error is non-nil only when the caller is not authorised.
func (s *BackupService) RestoreBackup(ctx context.Context, principal Principal, backupID string) (result RestoreResult, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RestoreBackup", "principal_id", principal.ActorID, "backup_id", backupID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to restore backup", err)
			return
		}
		if !result.Success {
			logger.WarnContext(ctx, "backup not restored", "reason", result.Message)
			return
		}
		logger.InfoContext(ctx, "backup restored",
			"teams", result.Summary.Teams,
			"rooms", result.Summary.Rooms,
			"history", result.Summary.History,
			"skipped_rooms", result.Summary.SkippedRooms,
			"skipped_history", result.Summary.SkippedHistory,
			"reactivated_history", result.Summary.ReactivatedHistory,
		)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	backup, gerr := s.backups.GetBackup(ctx, backupID)
	if gerr != nil {
		if errors.Is(mapStoreError(gerr, "backup"), ErrNotFound) {
			result.Message = "backup not found"
			return
		}
		result.Message = "failed to load backup: " + gerr.Error()
		return
	}

	snapshot, derr := decodeSnapshot(backup.Data)
	if derr != nil {
		result.Message = "backup payload is unreadable: " + derr.Error()
		return
	}

	summary, rerr := s.backups.RestoreSnapshot(ctx, snapshot, s.now())
	if rerr != nil {
		result.Message = "restore failed, nothing was changed: " + rerr.Error()
		return
	}

	result = RestoreResult{
		Success: true,
		Summary: summary,
		Message: fmt.Sprintf("restored %d teams, %d rooms and %d history entries from %q",
			summary.Teams, summary.Rooms, summary.History, backup.Name),
	}
	if summary.SkippedRooms > 0 || summary.SkippedHistory > 0 {
		result.Message += fmt.Sprintf(" (skipped %d missing rooms and %d orphaned history entries)",
			summary.SkippedRooms, summary.SkippedHistory)
	}
	if summary.ReactivatedHistory > 0 {
		result.Message += fmt.Sprintf("; %d history entries were moved back out of the archive",
			summary.ReactivatedHistory)
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// ArchiveAndReset archives live history into today's rollup, frees every room
// and, with deleteTeams, deletes all history and teams.
func (s *BackupService) ArchiveAndReset(ctx context.Context, principal Principal, deleteTeams bool) (result ArchiveResult, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ArchiveAndReset", "principal_id", principal.ActorID, "delete_teams", deleteTeams)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to archive", err)
			return
		}
		logger.InfoContext(ctx, "archive completed",
			"success", result.Success,
			"archived_history", result.Summary.ArchivedHistory,
			"deleted_teams", result.Summary.DeletedTeams,
		)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	now := s.now()
	dayStart := startOfDay(now)
	summary, aerr := s.archive.ArchiveAndReset(ctx, ArchiveRequest{
		ArchivedAt:  now.UTC(),
		DayStart:    dayStart,
		DeleteTeams: deleteTeams,
		Summarize: func(entries []HistoryEntry) DailyStats {
			return SummarizeDay(dayStart, entries)
		},
	})
	if aerr != nil {
		result.Message = "archive failed, nothing was changed: " + aerr.Error()
		return
	}

	result = ArchiveResult{Success: true, Summary: summary}
	if deleteTeams {
		result.Message = fmt.Sprintf("archived %d history entries, deleted %d teams", summary.ArchivedHistory, summary.DeletedTeams)
	} else {
		result.Message = fmt.Sprintf("archived %d history entries, teams kept", summary.ArchivedHistory)
	}
	s.broadcaster.broadcast(ctx, logger)
	return
}

// RestoreTeamsFromArchive reactivates archived teams whose name is still free.
func (s *BackupService) RestoreTeamsFromArchive(ctx context.Context, principal Principal) (result RestoreTeamsResult, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "RestoreTeamsFromArchive", "principal_id", principal.ActorID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to restore archived teams", err)
			return
		}
		logger.InfoContext(ctx, "archived teams restored", "success", result.Success, "restored", result.Restored)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	restored, rerr := s.archive.RestoreArchivedTeams(ctx)
	if rerr != nil {
		result.Message = "failed to restore teams: " + rerr.Error()
		return
	}
	result = RestoreTeamsResult{
		Success:  true,
		Restored: restored,
		Message:  fmt.Sprintf("restored %d teams from the archive", restored),
	}
	return
}

// ClearArchive deletes archived history, every daily rollup and archived teams.
func (s *BackupService) ClearArchive(ctx context.Context, principal Principal) (result ClearArchiveResult, err error) {
	if s == nil {
		err = fmt.Errorf("BackupService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ClearArchive", "principal_id", principal.ActorID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to clear archive", err)
			return
		}
		logger.InfoContext(ctx, "archive cleared",
			"success", result.Success,
			"deleted_history", result.Summary.DeletedHistory,
			"deleted_stats", result.Summary.DeletedStats,
			"deleted_teams", result.Summary.DeletedTeams,
		)
	}()

	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	summary, cerr := s.archive.ClearArchive(ctx, s.now())
	if cerr != nil {
		result.Message = "failed to clear archive: " + cerr.Error()
		return
	}
	result = ClearArchiveResult{
		Success: true,
		Summary: summary,
		Message: fmt.Sprintf("deleted %d history entries, %d daily stats and %d archived teams",
			summary.DeletedHistory, summary.DeletedStats, summary.DeletedTeams),
	}
	return
}

func summarizeBackup(backup Backup, snapshot Snapshot) BackupSummary {
	return BackupSummary{
		ID:          backup.ID,
		Name:        backup.Name,
		Description: backup.Description,
		CreatedAt:   backup.CreatedAt,
		Teams:       len(snapshot.Teams),
		Rooms:       len(snapshot.Rooms),
		History:     len(snapshot.History),
	}
}

type backupDocument struct {
	Teams   []backupTeam    `json:"teams"`
	Rooms   []backupRoom    `json:"rooms"`
	History []backupHistory `json:"history"`
}

type backupTeam struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	CreatedAt  time.Time `json:"createdAt"`
	IsArchived bool      `json:"isArchived"`
}

type backupRoom struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Status        RoomStatus `json:"status"`
	CurrentTeamID *string    `json:"currentTeamId"`
	OccupiedSince *time.Time `json:"occupiedSince"`
	ReservedUntil *time.Time `json:"reservedUntil"`
}

type backupHistory struct {
	ID             string        `json:"id"`
	RoomID         string        `json:"roomId"`
	TeamID         string        `json:"teamId"`
	Action         HistoryAction `json:"action"`
	Timestamp      time.Time     `json:"timestamp"`
	PreviousStatus *RoomStatus   `json:"previousStatus"`
	NewStatus      RoomStatus    `json:"newStatus"`
}

func encodeSnapshot(snapshot Snapshot) ([]byte, error) {
	doc := backupDocument{
		Teams:   make([]backupTeam, 0, len(snapshot.Teams)),
		Rooms:   make([]backupRoom, 0, len(snapshot.Rooms)),
		History: make([]backupHistory, 0, len(snapshot.History)),
	}
	for _, team := range snapshot.Teams {
		doc.Teams = append(doc.Teams, backupTeam{
			ID:         team.ID,
			Name:       team.Name,
			Color:      team.Color,
			CreatedAt:  team.CreatedAt.UTC(),
			IsArchived: team.IsArchived,
		})
	}
	for _, room := range snapshot.Rooms {
		doc.Rooms = append(doc.Rooms, backupRoom{
			ID:            room.ID,
			Name:          room.Name,
			Description:   room.Description,
			Status:        room.Status,
			CurrentTeamID: cloneString(room.CurrentTeamID),
			OccupiedSince: cloneTime(room.OccupiedSince),
			ReservedUntil: cloneTime(room.ReservedUntil),
		})
	}
	for _, entry := range snapshot.History {
		doc.History = append(doc.History, backupHistory{
			ID:             entry.ID,
			RoomID:         entry.RoomID,
			TeamID:         entry.TeamID,
			Action:         entry.Action,
			Timestamp:      entry.Timestamp.UTC(),
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
		})
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var doc backupDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("decode backup: %w", err)
	}

	snapshot := Snapshot{
		Teams:   make([]Team, 0, len(doc.Teams)),
		Rooms:   make([]Room, 0, len(doc.Rooms)),
		History: make([]HistoryEntry, 0, len(doc.History)),
	}
	for _, team := range doc.Teams {
		snapshot.Teams = append(snapshot.Teams, Team{
			ID:         team.ID,
			Name:       team.Name,
			Color:      team.Color,
			CreatedAt:  team.CreatedAt,
			IsArchived: team.IsArchived,
		})
	}
	for _, room := range doc.Rooms {
		if !room.Status.Valid() {
			return Snapshot{}, fmt.Errorf("decode backup: room %s has unknown status %q", room.ID, room.Status)
		}
		snapshot.Rooms = append(snapshot.Rooms, Room{
			ID:            room.ID,
			Name:          room.Name,
			Description:   room.Description,
			Status:        room.Status,
			CurrentTeamID: room.CurrentTeamID,
			OccupiedSince: room.OccupiedSince,
			ReservedUntil: room.ReservedUntil,
		})
	}
	for _, entry := range doc.History {
		if !entry.Action.Valid() {
			return Snapshot{}, fmt.Errorf("decode backup: history %s has unknown action %q", entry.ID, entry.Action)
		}
		snapshot.History = append(snapshot.History, HistoryEntry{
			ID:             entry.ID,
			RoomID:         entry.RoomID,
			TeamID:         entry.TeamID,
			Action:         entry.Action,
			Timestamp:      entry.Timestamp,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
		})
	}
	return snapshot, nil
}
