package handlers

import (
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/dto"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/notification"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
)

func EventToResponse(e *meetup.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:            e.ID,
		CreatorID:     e.CreatorID,
		ParticipantID: e.ParticipantID,
		Hub: dto.HubResponse{
			PlaceID: e.Hub.PlaceID,
			Name:    e.Hub.Name,
			Type:    e.Hub.Type,
			Lat:     e.Hub.Lat,
			Lng:     e.Hub.Lng,
			Address: e.Hub.Address,
		},
		ActivityType:          string(e.ActivityType),
		Status:                string(e.Status),
		ScheduledStartTime:    e.ScheduledStartTime,
		DurationMinutes:       e.DurationMinutes,
		ExpiresAt:             e.ExpiresAt,
		RevalidationSentAt:    e.RevalidationSentAt,
		RevalidationConfirmed: e.RevalidationConfirmed,
		CreatorCheckIn:        dto.CheckInResponse{Status: string(e.CreatorCheckIn.Status), At: e.CreatorCheckIn.At},
		ParticipantCheckIn:    dto.CheckInResponse{Status: string(e.ParticipantCheckIn.Status), At: e.ParticipantCheckIn.At},
		ClosedAt:              e.ClosedAt,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func EventsToResponse(events []meetup.Event) []dto.EventResponse {
	out := make([]dto.EventResponse, len(events))
	for i := range events {
		out[i] = EventToResponse(&events[i])
	}
	return out
}

func NearbyToResponse(events []meetup.NearbyEvent) []dto.NearbyEventResponse {
	out := make([]dto.NearbyEventResponse, len(events))
	for i := range events {
		out[i] = dto.NearbyEventResponse{
			EventResponse:  EventToResponse(&events[i].Event),
			DistanceMeters: events[i].DistanceMeters,
		}
	}
	return out
}

func RequestToResponse(r *meetup.EventRequest) dto.EventRequestResponse {
	return dto.EventRequestResponse{
		ID:          r.ID,
		EventID:     r.EventID,
		RequesterID: r.RequesterID,
		Status:      string(r.Status),
		Message:     r.Message,
		CreatedAt:   r.CreatedAt,
	}
}

func RequestsToResponse(requests []meetup.EventRequest) []dto.EventRequestResponse {
	out := make([]dto.EventRequestResponse, len(requests))
	for i := range requests {
		out[i] = RequestToResponse(&requests[i])
	}
	return out
}

func MessageToResponse(m *meetup.ChatMessage) dto.ChatMessageResponse {
	return dto.ChatMessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func FeedbackToResponse(f *meetup.EventFeedback) dto.FeedbackResponse {
	return dto.FeedbackResponse{
		ID:         f.ID,
		EventID:    f.EventID,
		FromUserID: f.FromUserID,
		ToUserID:   f.ToUserID,
		Rating:     string(f.Rating),
		Comment:    f.Comment,
		CreatedAt:  f.CreatedAt,
	}
}

func DetailsToResponse(d *meetup.EventDetails) dto.EventDetailsResponse {
	resp := dto.EventDetailsResponse{Event: EventToResponse(&d.Event)}
	if d.Role != nil {
		resp.Role = string(*d.Role)
	}
	if d.Chat != nil {
		resp.Chat = &dto.ChatResponse{
			ID:                      d.Chat.ID,
			CreatorMessageCount:     d.Chat.CreatorMessageCount,
			ParticipantMessageCount: d.Chat.ParticipantMessageCount,
			IsLocked:                d.Chat.IsLocked,
			LockedAt:                d.Chat.LockedAt,
			ExpiresAt:               d.Chat.ExpiresAt,
		}
		if d.Role != nil {
			resp.Chat.RemainingMessages = meetup.NewChatGuard().Remaining(d.Chat, *d.Role)
		}
	}
	for i := range d.Messages {
		resp.Messages = append(resp.Messages, MessageToResponse(&d.Messages[i]))
	}
	for i := range d.Feedback {
		resp.Feedback = append(resp.Feedback, FeedbackToResponse(&d.Feedback[i]))
	}
	return resp
}

func StatsToResponse(s *stats.UserStats, milestones []stats.UserMilestone, self bool) dto.UserStatsResponse {
	resp := dto.UserStatsResponse{
		UserID:          s.UserID,
		TotalPoints:     s.TotalPoints,
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		LastMeetupDate:  s.LastMeetupDate,
		EventsCreated:   s.EventsCreated,
		EventsCompleted: s.EventsCompleted,
		EventsCancelled: s.EventsCancelled,
		PositiveRatings: s.PositiveRatings,
		NeutralRatings:  s.NeutralRatings,
		NegativeRatings: s.NegativeRatings,
		Milestones:      make([]dto.MilestoneResponse, 0, len(milestones)),
	}
	if self {
		resp.SuspendedUntil = s.SuspendedUntil
	}
	for _, m := range milestones {
		resp.Milestones = append(resp.Milestones, dto.MilestoneResponse{
			Kind:      string(m.Kind),
			Threshold: m.Threshold,
			ReachedAt: m.ReachedAt,
		})
	}
	return resp
}

func NotificationToDTO(n *notification.Notification) dto.NotificationDTO {
	return dto.NotificationDTO{
		ID:          n.ID,
		Type:        string(n.Type),
		Title:       n.Title,
		Content:     n.Content,
		Status:      string(n.Status),
		Data:        n.Data,
		Reference:   n.Reference,
		ReferenceID: n.ReferenceID,
		CreatedAt:   n.CreatedAt,
		ReadAt:      n.ReadAt,
	}
}

func NotificationsToDTO(items []notification.Notification) []dto.NotificationDTO {
	out := make([]dto.NotificationDTO, len(items))
	for i := range items {
		out[i] = NotificationToDTO(&items[i])
	}
	return out
}
