package common

// --------------------------------------------------------------------------
// Request Codes
// --------------------------------------------------------------------------

const (
	ReqSendMessage              int16 = 10
	ReqPullMessage              int16 = 11
	ReqQueryConsumerOffset      int16 = 14
	ReqUpdateConsumerOffset     int16 = 15
	ReqSearchOffsetByTimestamp  int16 = 29
	ReqGetMaxOffset             int16 = 30
	ReqHeartbeat                int16 = 34
	ReqConsumerSendMsgBack      int16 = 36
	ReqEndTransaction           int16 = 37
	ReqGetConsumerListByGroup   int16 = 38
	ReqCheckTransactionState    int16 = 39
	ReqNotifyConsumerIdsChanged int16 = 40
	ReqLockBatchMQ              int16 = 41
	ReqUnlockBatchMQ            int16 = 42
	ReqGetRouteInfoByTopic      int16 = 105
	ReqResetConsumerOffset      int16 = 220
	ReqGetConsumerRunningInfo   int16 = 307
	ReqConsumeMessageDirectly   int16 = 309
	ReqSendMessageV2            int16 = 310
	ReqSendBatchMessage         int16 = 320
)

// --------------------------------------------------------------------------
// Response Codes
// --------------------------------------------------------------------------

const (
	ResSuccess                 int16 = 0
	ResSystemError             int16 = 1
	ResSystemBusy              int16 = 2
	ResRequestCodeNotSupported int16 = 3
	ResFlushDiskTimeout        int16 = 10
	ResSlaveNotAvailable       int16 = 11
	ResFlushSlaveTimeout       int16 = 12
	ResTopicNotExist           int16 = 17
	ResPullNotFound            int16 = 19
	ResPullRetryImmediately    int16 = 20
	ResPullOffsetMoved         int16 = 21
	ResQueryNotFound           int16 = 22
)

var responseCodeNames = map[int16]string{
	ResSuccess:                 "SUCCESS",
	ResSystemError:             "SYSTEM_ERROR",
	ResSystemBusy:              "SYSTEM_BUSY",
	ResRequestCodeNotSupported: "REQUEST_CODE_NOT_SUPPORTED",
	ResFlushDiskTimeout:        "FLUSH_DISK_TIMEOUT",
	ResSlaveNotAvailable:       "SLAVE_NOT_AVAILABLE",
	ResFlushSlaveTimeout:       "FLUSH_SLAVE_TIMEOUT",
	ResTopicNotExist:           "TOPIC_NOT_EXIST",
	ResPullNotFound:            "PULL_NOT_FOUND",
	ResPullRetryImmediately:    "PULL_RETRY_IMMEDIATELY",
	ResPullOffsetMoved:         "PULL_OFFSET_MOVED",
	ResQueryNotFound:           "QUERY_NOT_FOUND",
}

// ResponseCodeName returns the symbolic name of a response code
func ResponseCodeName(code int16) string {
	if name, ok := responseCodeNames[code]; ok {
		return name
	}
	return "UNKNOWN"
}
