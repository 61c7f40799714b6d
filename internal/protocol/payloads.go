package protocol

// --- 客户端请求 Payloads ---

// PingPayload 心跳请求
type PingPayload struct {
	Timestamp int64 `json:"timestamp"` // 客户端时间戳（毫秒）
}

// SubscribePayload 订阅请求
type SubscribePayload struct {
	Topics []string `json:"topics"` // 为空表示订阅全部主题
}

// EditPlayerPayload 创建或修改玩家资料
type EditPlayerPayload struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Hat   string `json:"hat"`
}

// LocationPayload 坐标
type LocationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CreateRoomPayload 创建房间请求
type CreateRoomPayload struct {
	TemplateID string `json:"template_id"`
}

// JoinRoomPayload 加入房间请求，优先使用房间码
type JoinRoomPayload struct {
	RoomCode string `json:"room_code,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
}

// RoomRequestPayload 针对单个房间的请求（开始、完成任务、超时检查、查询、发起投票）
type RoomRequestPayload struct {
	RoomID string `json:"room_id"`
}

// ReportKillPayload 击杀请求，击杀者为当前连接的玩家
type ReportKillPayload struct {
	RoomID   string          `json:"room_id"`
	VictimID string          `json:"victim_id"`
	Location LocationPayload `json:"location"`
}

// CastVotePayload 投票请求，NomineeID 为空表示弃权
type CastVotePayload struct {
	SessionID string  `json:"session_id"`
	NomineeID *string `json:"nominee_id,omitempty"`
}

// --- 服务端响应 Payloads ---

// ConnectedPayload 连接成功响应
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	PlayerID     string `json:"player_id,omitempty"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"client_timestamp"` // 客户端发送的时间戳
	ServerTimestamp int64 `json:"server_timestamp"` // 服务器时间戳（毫秒）
}

// SubscribedPayload 订阅成功响应
type SubscribedPayload struct {
	Topics []string `json:"topics"`
}

// PlayerInfo 玩家信息
type PlayerInfo struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Color    string          `json:"color"`
	Hat      string          `json:"hat"`
	Location LocationPayload `json:"location"`
	RoomID   string          `json:"room_id,omitempty"`
}

// CorpseInfo 尸体信息
type CorpseInfo struct {
	PlayerID string          `json:"player_id"`
	Location LocationPayload `json:"location"`
	At       int64           `json:"at"` // 毫秒时间戳
}

// RoomInfo 房间快照
// Imposters 仅对内鬼本人或游戏结束后可见
type RoomInfo struct {
	ID             string       `json:"id"`
	Code           string       `json:"code"`
	TemplateID     string       `json:"template_id"`
	State          string       `json:"state"`
	Participants   []string     `json:"participants"`
	Survivors      []string     `json:"survivors"`
	Imposters      []string     `json:"imposters,omitempty"`
	Corpses        []CorpseInfo `json:"corpses"`
	CompletedTasks int          `json:"completed_tasks"`
	StartedAt      int64        `json:"started_at,omitempty"`
	EndedAt        int64        `json:"ended_at,omitempty"`
	Winner         string       `json:"winner,omitempty"`
	EndReason      string       `json:"end_reason,omitempty"`
}

// VoteEntryInfo 选票
type VoteEntryInfo struct {
	VoterID   string  `json:"voter_id"`
	NomineeID *string `json:"nominee_id,omitempty"`
}

// TallyInfo 计票结果
type TallyInfo struct {
	NomineeID string `json:"nominee_id"`
	Votes     int    `json:"votes"`
}

// VoteSessionInfo 投票快照
type VoteSessionInfo struct {
	ID              string          `json:"id"`
	RoomID          string          `json:"room_id"`
	Entries         []VoteEntryInfo `json:"entries"`
	Expected        int             `json:"expected"`
	Completed       bool            `json:"completed"`
	EjectedPlayerID *string         `json:"ejected_player_id,omitempty"`
	Tally           []TallyInfo     `json:"tally,omitempty"`
}

// EventPayload 订阅推送
type EventPayload struct {
	Topic   string           `json:"topic"`
	RoomID  string           `json:"room_id"`
	Room    *RoomInfo        `json:"room,omitempty"`
	Vote    *VoteSessionInfo `json:"vote,omitempty"`
	Corpses []CorpseInfo     `json:"corpses,omitempty"`
	Player  *PlayerInfo      `json:"player,omitempty"`
}

// ErrorPayload 错误消息
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	RoomID  string `json:"room_id,omitempty"`
}
