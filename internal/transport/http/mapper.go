package http

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-hub/internal/core"
	"github.com/vovakirdan/wirechat-hub/internal/proto"
)

// errCodeRateLimited is reported when a connection exceeds its inbound budget.
const errCodeRateLimited = "rate_limited"

func badRequest(format string, args ...any) *core.CoreError {
	return &core.CoreError{Code: core.ErrCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

// decode unmarshals inbound data; an absent payload leaves dst zeroed.
func decode(data json.RawMessage, dst any) *core.CoreError {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return badRequest("malformed data: %v", err)
	}
	return nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *core.CoreError) {
	cmd := &core.Command{Ack: inbound.Ack}

	switch inbound.Type {
	case proto.InboundLogin, proto.InboundLoginAlias:
		var login proto.LoginData
		if err := decode(inbound.Data, &login); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandLogin
		cmd.Username = login.Username
	case proto.InboundRoomsList:
		cmd.Kind = core.CommandListRooms
	case proto.InboundUsersOnline:
		cmd.Kind = core.CommandListOnline
	case proto.InboundConversationsList:
		cmd.Kind = core.CommandListConversations
	case proto.InboundRoomCreate:
		var create proto.CreateRoomData
		if err := decode(inbound.Data, &create); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandCreateRoom
		cmd.Room = create.RoomName
		cmd.DisplayName = create.DisplayName
	case proto.InboundRoomJoin:
		var join proto.RoomData
		if err := decode(inbound.Data, &join); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandJoinRoom
		cmd.Room = join.RoomName
	case proto.InboundMessageRoom:
		var msg proto.RoomMessageData
		if err := decode(inbound.Data, &msg); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandSendRoomMessage
		cmd.Room = msg.RoomName
		cmd.Content = msg.Content
	case proto.InboundMessagePrivate:
		var msg proto.PrivateMessageData
		if err := decode(inbound.Data, &msg); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandSendPrivateMessage
		cmd.Recipient = msg.RecipientUsername
		cmd.Content = msg.Content
	case proto.InboundConversationGet:
		var conv proto.ConversationData
		if err := decode(inbound.Data, &conv); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandGetConversation
		cmd.Username = conv.Username
	case proto.InboundTypingStart, proto.InboundTypingStop:
		var typing proto.RoomData
		if err := decode(inbound.Data, &typing); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandTypingStart
		if inbound.Type == proto.InboundTypingStop {
			cmd.Kind = core.CommandTypingStop
		}
		cmd.Room = typing.RoomName
	case proto.InboundPrivateTypingStart, proto.InboundPrivateTypingStop:
		var typing proto.PrivateTypingData
		if err := decode(inbound.Data, &typing); err != nil {
			return nil, err
		}
		cmd.Kind = core.CommandPrivateTypingStart
		if inbound.Type == proto.InboundPrivateTypingStop {
			cmd.Kind = core.CommandPrivateTypingStop
		}
		cmd.Recipient = typing.RecipientUsername
	default:
		return nil, badRequest("unknown message type %q", inbound.Type)
	}
	return cmd, nil
}

// errorAck answers a request the core never saw.
func errorAck(ack uint64, err *core.CoreError) proto.Outbound {
	return proto.Outbound{
		Type: proto.OutboundTypeAck,
		Ack:  ack,
		Data: proto.Status{Success: false, Error: err.Message, Code: err.Code},
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	if event.Kind == core.EventReply {
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Ack:  event.Reply.Ack,
			Data: replyData(event.Reply),
		}
	}

	out := proto.Outbound{Type: proto.OutboundTypeEvent}
	switch event.Kind {
	case core.EventUserOnline:
		joined := event.Session.JoinedAt
		out.Event = proto.EventUserOnline
		out.Data = proto.UserPresence{Username: event.User, JoinedAt: &joined}
	case core.EventUserOffline:
		out.Event = proto.EventUserOffline
		out.Data = proto.UserPresence{Username: event.User}
	case core.EventUserJoined:
		out.Event = proto.EventUserJoined
		out.Data = proto.UserRoom{Username: event.User, RoomName: event.Room}
	case core.EventUserLeft:
		out.Event = proto.EventUserLeft
		out.Data = proto.UserRoom{Username: event.User, RoomName: event.Room}
	case core.EventRoomCreated:
		out.Event = proto.EventRoomCreated
		out.Data = roomInfo(event.Summary)
	case core.EventRoomsUpdate:
		out.Event = proto.EventRoomsUpdate
		out.Data = proto.RoomCount{RoomName: event.Room, UserCount: event.Count}
	case core.EventRoomMessage:
		out.Event = proto.EventMessageReceived
		out.Data = roomMessage(event.Message)
	case core.EventPrivateMessage:
		out.Event = proto.EventPrivateReceived
		out.Data = privateMessage(event.Private)
	case core.EventUserTyping:
		out.Event = proto.EventUserTyping
		out.Data = proto.Typing{Username: event.User, RoomName: event.Room}
	case core.EventUserStoppedTyping:
		out.Event = proto.EventUserStoppedTyping
		out.Data = proto.Typing{Username: event.User, RoomName: event.Room}
	case core.EventPrivateTyping:
		out.Event = proto.EventPrivateTyping
		out.Data = proto.Typing{Username: event.User}
	case core.EventPrivateStoppedTyping:
		out.Event = proto.EventPrivateStoppedTyping
		out.Data = proto.Typing{Username: event.User}
	}
	return out
}

func replyData(r *core.Reply) any {
	if !r.OK() {
		return proto.Status{Success: false, Error: r.Err.Message, Code: r.Err.Code}
	}
	ok := proto.Status{Success: true}

	switch r.Command {
	case core.CommandLogin:
		return proto.LoginResponse{
			Status:      ok,
			User:        &proto.UserInfo{Username: r.Session.Username, CurrentRoom: r.Session.CurrentRoom},
			OnlineUsers: r.OnlineUsers,
		}
	case core.CommandListRooms:
		rooms := make([]proto.RoomInfo, 0, len(r.Rooms))
		for _, room := range r.Rooms {
			rooms = append(rooms, roomInfo(room))
		}
		return proto.RoomsResponse{Status: ok, Rooms: rooms}
	case core.CommandCreateRoom:
		return proto.CreateRoomResponse{
			Status: ok,
			Room: &proto.RoomDetail{
				Name:        r.Room.Name,
				DisplayName: r.Room.DisplayName,
				CreatedAt:   r.Room.CreatedAt,
				Messages:    []proto.RoomMessage{},
			},
		}
	case core.CommandJoinRoom:
		messages := make([]proto.RoomMessage, 0, len(r.Messages))
		for _, m := range r.Messages {
			messages = append(messages, roomMessage(m))
		}
		users := r.Members
		if users == nil {
			users = []string{}
		}
		return proto.JoinRoomResponse{Status: ok, RoomName: r.Room.Name, Messages: messages, Users: users}
	case core.CommandSendRoomMessage:
		return proto.SendResponse{Status: ok, MessageID: r.MessageID}
	case core.CommandSendPrivateMessage:
		delivered := r.Delivered
		return proto.SendResponse{Status: ok, MessageID: r.MessageID, Delivered: &delivered}
	case core.CommandGetConversation:
		messages := make([]proto.PrivateMessage, 0, len(r.Private))
		for _, m := range r.Private {
			messages = append(messages, privateMessage(m))
		}
		return proto.ConversationResponse{Status: ok, Messages: messages}
	case core.CommandListConversations:
		convs := make([]proto.ConversationInfo, 0, len(r.Conversations))
		for _, c := range r.Conversations {
			info := proto.ConversationInfo{
				Username:    c.OtherUser,
				LastMessage: c.LastMessage,
				UnreadCount: c.UnreadCount,
			}
			if !c.LastTimestamp.IsZero() {
				ts := c.LastTimestamp
				info.Timestamp = &ts
			}
			convs = append(convs, info)
		}
		return proto.ConversationsResponse{Status: ok, Conversations: convs}
	case core.CommandListOnline:
		users := make([]proto.OnlineUser, 0, len(r.Online))
		for _, s := range r.Online {
			users = append(users, proto.OnlineUser{Username: s.Username, CurrentRoom: s.CurrentRoom})
		}
		return proto.OnlineUsersResponse{Status: ok, Users: users}
	default:
		return ok
	}
}

func roomInfo(s core.RoomSummary) proto.RoomInfo {
	return proto.RoomInfo{Name: s.Name, DisplayName: s.DisplayName, UserCount: s.UserCount}
}

func roomMessage(m core.RoomMessage) proto.RoomMessage {
	return proto.RoomMessage{
		ID:        m.ID,
		Username:  m.Username,
		Content:   m.Content,
		RoomName:  m.Room,
		Timestamp: m.Timestamp.UTC().Truncate(time.Millisecond),
	}
}

func privateMessage(m core.PrivateMessage) proto.PrivateMessage {
	return proto.PrivateMessage{
		ID:        m.ID,
		From:      m.From,
		To:        m.To,
		Content:   m.Content,
		Timestamp: m.Timestamp.UTC().Truncate(time.Millisecond),
		Delivered: m.Delivered,
	}
}
