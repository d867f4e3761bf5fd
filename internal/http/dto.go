package http

import (
	"encoding/json"
	"time"

	"github.com/example/room-tracker/internal/application"
)

const dateLayout = "2006-01-02"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTimestamp(*t)
	return &s
}

type teamDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	CreatedAt  string `json:"created_at"`
	IsArchived bool   `json:"is_archived"`
}

func toTeamDTO(team application.Team) teamDTO {
	return teamDTO{
		ID:         team.ID,
		Name:       team.Name,
		Color:      team.Color,
		CreatedAt:  formatTimestamp(team.CreatedAt),
		IsArchived: team.IsArchived,
	}
}

func toTeamDTOs(teams []application.Team) []teamDTO {
	out := make([]teamDTO, 0, len(teams))
	for _, team := range teams {
		out = append(out, toTeamDTO(team))
	}
	return out
}

type roomDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	CurrentTeamID *string  `json:"current_team_id"`
	CurrentTeam   *teamDTO `json:"current_team"`
	OccupiedSince *string  `json:"occupied_since"`
	ReservedUntil *string  `json:"reserved_until"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func toRoomDTO(room application.Room) roomDTO {
	dto := roomDTO{
		ID:            room.ID,
		Name:          room.Name,
		Description:   room.Description,
		Status:        string(room.Status),
		CurrentTeamID: room.CurrentTeamID,
		OccupiedSince: formatOptionalTimestamp(room.OccupiedSince),
		ReservedUntil: formatOptionalTimestamp(room.ReservedUntil),
		CreatedAt:     formatTimestamp(room.CreatedAt),
		UpdatedAt:     formatTimestamp(room.UpdatedAt),
	}
	if room.CurrentTeam != nil {
		team := toTeamDTO(*room.CurrentTeam)
		dto.CurrentTeam = &team
	}
	return dto
}

func toRoomDTOs(rooms []application.Room) []roomDTO {
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	return out
}

type roomResponse struct {
	Room roomDTO `json:"room"`
}

type listRoomsResponse struct {
	Rooms []roomDTO `json:"rooms"`
}

// EncodeRoomList renders a room list snapshot in the same shape as GET /api/rooms.
func EncodeRoomList(rooms []application.Room) ([]byte, error) {
	return json.Marshal(listRoomsResponse{Rooms: toRoomDTOs(rooms)})
}

type teamResponse struct {
	Team teamDTO `json:"team"`
}

type listTeamsResponse struct {
	Teams []teamDTO `json:"teams"`
}

type historyDTO struct {
	ID             string  `json:"id"`
	RoomID         string  `json:"room_id"`
	TeamID         string  `json:"team_id"`
	Action         string  `json:"action"`
	Timestamp      string  `json:"timestamp"`
	PreviousStatus *string `json:"previous_status"`
	NewStatus      string  `json:"new_status"`
	ArchivedDate   *string `json:"archived_date,omitempty"`
}

func toHistoryDTO(entry application.HistoryEntry) historyDTO {
	dto := historyDTO{
		ID:           entry.ID,
		RoomID:       entry.RoomID,
		TeamID:       entry.TeamID,
		Action:       string(entry.Action),
		Timestamp:    formatTimestamp(entry.Timestamp),
		NewStatus:    string(entry.NewStatus),
		ArchivedDate: formatOptionalTimestamp(entry.ArchivedDate),
	}
	if entry.PreviousStatus != nil {
		previous := string(*entry.PreviousStatus)
		dto.PreviousStatus = &previous
	}
	return dto
}

type listHistoryResponse struct {
	History []historyDTO `json:"history"`
}

type roomStatsDTO struct {
	RoomID                   string  `json:"room_id"`
	TotalVisits              int     `json:"total_visits"`
	AverageOccupationMinutes *int    `json:"average_occupation_minutes"`
	LastOccupiedAt           *string `json:"last_occupied_at"`
}

func toRoomStatsDTO(stats application.RoomStats) roomStatsDTO {
	return roomStatsDTO{
		RoomID:                   stats.RoomID,
		TotalVisits:              stats.TotalVisits,
		AverageOccupationMinutes: stats.AverageOccupationMinutes,
		LastOccupiedAt:           formatOptionalTimestamp(stats.LastOccupiedAt),
	}
}

type visitDTO struct {
	TeamID          string `json:"team_id"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

type roomDetailResponse struct {
	Room   roomDTO      `json:"room"`
	Stats  roomStatsDTO `json:"stats"`
	Visits []visitDTO   `json:"visits"`
}

func toRoomDetailResponse(detail application.RoomDetail) roomDetailResponse {
	visits := make([]visitDTO, 0, len(detail.Visits))
	for _, visit := range detail.Visits {
		visits = append(visits, visitDTO{
			TeamID:          visit.TeamID,
			Start:           formatTimestamp(visit.Start),
			End:             formatTimestamp(visit.End),
			DurationMinutes: visit.DurationMinutes,
		})
	}
	return roomDetailResponse{
		Room:   toRoomDTO(detail.Room),
		Stats:  toRoomStatsDTO(detail.Stats),
		Visits: visits,
	}
}

type currentStatsDTO struct {
	TotalRooms    int `json:"total_rooms"`
	FreeRooms     int `json:"free_rooms"`
	OccupiedRooms int `json:"occupied_rooms"`
	ReservedRooms int `json:"reserved_rooms"`
	OfflineRooms  int `json:"offline_rooms"`
	ActiveTeams   int `json:"active_teams"`
}

type dailyStatsDTO struct {
	Date              string         `json:"date"`
	TotalOccupations  int            `json:"total_occupations"`
	TotalReservations int            `json:"total_reservations"`
	MostPopularRoomID *string        `json:"most_popular_room_id"`
	TeamActivity      map[string]int `json:"team_activity"`
}

func toDailyStatsDTO(stats application.DailyStats) dailyStatsDTO {
	activity := stats.TeamActivity
	if activity == nil {
		activity = map[string]int{}
	}
	return dailyStatsDTO{
		Date:              stats.Date.UTC().Format(dateLayout),
		TotalOccupations:  stats.TotalOccupations,
		TotalReservations: stats.TotalReservations,
		MostPopularRoomID: stats.MostPopularRoomID,
		TeamActivity:      activity,
	}
}

type backupDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	Teams       int    `json:"teams"`
	Rooms       int    `json:"rooms"`
	History     int    `json:"history"`
}

func toBackupDTO(summary application.BackupSummary) backupDTO {
	return backupDTO{
		ID:          summary.ID,
		Name:        summary.Name,
		Description: summary.Description,
		CreatedAt:   formatTimestamp(summary.CreatedAt),
		Teams:       summary.Teams,
		Rooms:       summary.Rooms,
		History:     summary.History,
	}
}

type sweepResponse struct {
	ExpiredReservations int `json:"expired_reservations"`
	ExpiredOccupations  int `json:"expired_occupations"`
	Failures            int `json:"failures"`
}

type restoreResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	Teams              int    `json:"teams"`
	Rooms              int    `json:"rooms"`
	History            int    `json:"history"`
	SkippedRooms       int    `json:"skipped_rooms"`
	SkippedHistory     int    `json:"skipped_history"`
	ReactivatedHistory int    `json:"reactivated_history"`
}

type archiveResponse struct {
	Success         bool          `json:"success"`
	Message         string        `json:"message"`
	ArchivedHistory int           `json:"archived_history"`
	DeletedTeams    int           `json:"deleted_teams"`
	Stats           dailyStatsDTO `json:"stats"`
}

type restoreTeamsResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Restored int    `json:"restored"`
}

type clearArchiveResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	DeletedHistory int    `json:"deleted_history"`
	DeletedStats   int    `json:"deleted_stats"`
	DeletedTeams   int    `json:"deleted_teams"`
}

type teamActionRequest struct {
	TeamID string `json:"team_id"`
}

type roomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r roomRequest) toInput() application.RoomInput {
	return application.RoomInput{Name: r.Name, Description: r.Description}
}

type teamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (r teamRequest) toInput() application.TeamInput {
	return application.TeamInput{Name: r.Name, Color: r.Color}
}

type setStatusRequest struct {
	Status string  `json:"status"`
	TeamID *string `json:"team_id"`
}

type backupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type archiveRequest struct {
	DeleteTeams bool `json:"delete_teams"`
}
