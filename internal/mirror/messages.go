package mirror

import (
	"encoding/json"
	"log"

	"office-quiz/internal/events"
	"office-quiz/internal/room"
)

// registerMessages forwards the server's named messages onto the bus.
// Payloads that fail to decode are logged and dropped.
func (m *Mirror) registerMessages() []func() {
	return []func(){
		m.room.OnMessage(room.MsgRoomData, func(raw json.RawMessage) {
			var payload room.RoomDataPayload
			if !decode(room.MsgRoomData, raw, &payload) {
				return
			}
			m.roomData = events.RoomData(payload)
			m.bus.Publish(m.roomData)
		}),
		m.room.OnMessage(room.MsgAddChatMessage, func(raw json.RawMessage) {
			var payload room.ChatPayload
			if !decode(room.MsgAddChatMessage, raw, &payload) {
				return
			}
			m.bus.Publish(events.DialogBubble{ClientID: payload.ClientID, Content: bubbleText(payload.Content)})
		}),
		m.room.OnMessage(room.MsgPlayerJoinQuiz, func(raw json.RawMessage) {
			var payload room.PlayerJoinQuizPayload
			if !decode(room.MsgPlayerJoinQuiz, raw, &payload) {
				return
			}
			m.bus.Publish(events.QuizJoinReceived{
				PlayerName:           payload.PlayerName,
				ParticipantCount:     payload.ParticipantsCount,
				ExistingParticipants: payload.ExistingParticipants,
			})
		}),
		m.room.OnMessage(room.MsgWaitForNextQuiz, func(raw json.RawMessage) {
			var payload room.WaitForNextQuizPayload
			if !decode(room.MsgWaitForNextQuiz, raw, &payload) {
				return
			}
			m.bus.Publish(events.QuizWaitReceived{Seconds: payload.TimeUntilNextQuiz})
		}),
		m.room.OnMessage(room.MsgStartQuiz, func(raw json.RawMessage) {
			var payload room.StartQuizPayload
			if !decode(room.MsgStartQuiz, raw, &payload) {
				return
			}
			m.bus.Publish(events.QuizStartReceived{QuestionID: payload.CurQuiz, Seconds: payload.QuizTime})
		}),
		m.room.OnMessage(room.MsgEndQuiz, func(json.RawMessage) {
			m.bus.Publish(events.QuizEndReceived{})
		}),
		m.room.OnMessage(room.MsgLeftQuiz, func(json.RawMessage) {
			m.bus.Publish(events.QuizLeftReceived{})
		}),
		m.room.OnMessage(room.MsgPlayerLeftQuiz, func(raw json.RawMessage) {
			var payload room.PlayerLeftQuizPayload
			if !decode(room.MsgPlayerLeftQuiz, raw, &payload) {
				return
			}
			m.bus.Publish(events.QuizPlayerLeftReceived{PlayerName: payload.PlayerName, ClientID: payload.ClientID})
		}),
	}
}

func decode(msgType string, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Printf("room message dropped type=%s error=%v", msgType, err)
		return false
	}
	return true
}
