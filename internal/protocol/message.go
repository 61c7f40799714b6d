package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 连接操作
	MsgPing      MessageType = "ping"      // 心跳 ping
	MsgSubscribe MessageType = "subscribe" // 订阅通知

	// 玩家操作
	MsgEditPlayer     MessageType = "edit_player"     // 创建或修改玩家资料
	MsgUpdateLocation MessageType = "update_location" // 更新玩家位置

	// 房间操作
	MsgCreateRoom       MessageType = "create_room"         // 创建房间
	MsgJoinRoom         MessageType = "join_room"           // 通过房间码加入
	MsgStartRoom        MessageType = "start_room"          // 开始游戏
	MsgGetRoom          MessageType = "get_room"            // 查询房间
	MsgEndRoomIfExpired MessageType = "end_room_if_expired" // 检查房间是否超时

	// 游戏操作
	MsgCompleteTask MessageType = "complete_task" // 完成任务
	MsgReportKill   MessageType = "report_kill"   // 击杀
	MsgStartVote    MessageType = "start_vote"    // 发起投票
	MsgCastVote     MessageType = "cast_vote"     // 投票
)

// 服务端 → 客户端 消息类型
const (
	MsgConnected   MessageType = "connected"    // 连接成功
	MsgPong        MessageType = "pong"         // 心跳 pong
	MsgSubscribed  MessageType = "subscribed"   // 订阅成功
	MsgPlayer      MessageType = "player"       // 玩家资料
	MsgRoom        MessageType = "room"         // 房间快照
	MsgVoteSession MessageType = "vote_session" // 投票快照
	MsgEvent       MessageType = "event"        // 订阅推送

	// 错误
	MsgError MessageType = "error" // 错误消息
)
