package protocol

// 错误码
const (
	ErrCodeUnknown         = 1000
	ErrCodeInvalidMsg      = 1001
	ErrCodeUnauthenticated = 1002 // 未绑定玩家身份
	ErrCodeRateLimit       = 1003
	ErrCodeInfrastructure  = 1500 // 存储或推送失败，可重试
	ErrCodeConflict        = 1501 // 并发写入冲突，可重试

	ErrCodeTemplateNotFound = 2001
	ErrCodeRoomNotFound     = 2002
	ErrCodePlayerNotFound   = 2003
	ErrCodeVoteNotFound     = 2004

	ErrCodeInvalidTemplate = 3001
	ErrCodeInvalidRoster   = 3002
	ErrCodeAlreadyJoined   = 3003
	ErrCodeRoomFull        = 3004
	ErrCodeImposterTarget  = 3005
	ErrCodeInvalidTarget   = 3006
	ErrCodeDuplicateVote   = 3007
	ErrCodeInvalidVoter    = 3008
	ErrCodeInvalidNominee  = 3009
	ErrCodeInvalidPlayer   = 3010

	ErrCodeAlreadyStarted = 4001
	ErrCodeGameNotStarted = 4002
	ErrCodeGameEnded      = 4003
	ErrCodeVoteInProgress = 4004
	ErrCodeVoteClosed     = 4005
)

// ErrorMessages 错误码对应的消息
var ErrorMessages = map[int]string{
	ErrCodeUnknown:          "未知错误",
	ErrCodeInvalidMsg:       "无效的消息格式",
	ErrCodeUnauthenticated:  "请先创建或指定玩家",
	ErrCodeRateLimit:        "消息发送过于频繁",
	ErrCodeInfrastructure:   "服务暂时不可用，请重试",
	ErrCodeConflict:         "房间状态已变化，请重试",
	ErrCodeTemplateNotFound: "游戏模板不存在",
	ErrCodeRoomNotFound:     "房间不存在",
	ErrCodePlayerNotFound:   "玩家不存在",
	ErrCodeVoteNotFound:     "投票不存在",
	ErrCodeInvalidTemplate:  "无效的游戏模板",
	ErrCodeInvalidRoster:    "参与人数不足",
	ErrCodeAlreadyJoined:    "已在房间中",
	ErrCodeRoomFull:         "房间已满",
	ErrCodeImposterTarget:   "内鬼不能击杀内鬼",
	ErrCodeInvalidTarget:    "目标不是存活玩家",
	ErrCodeDuplicateVote:    "已经投过票",
	ErrCodeInvalidVoter:     "投票人不是存活玩家",
	ErrCodeInvalidNominee:   "被投票人不是存活玩家",
	ErrCodeInvalidPlayer:    "无效的玩家资料",
	ErrCodeAlreadyStarted:   "游戏已开始",
	ErrCodeGameNotStarted:   "游戏尚未开始",
	ErrCodeGameEnded:        "游戏已结束",
	ErrCodeVoteInProgress:   "投票进行中",
	ErrCodeVoteClosed:       "投票已结束",
}
