package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/rmq/lib/route"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/puzpuzpuz/xsync/v3"
)

// NameServerAdapter answers route queries from an in memory route table
type NameServerAdapter struct {
	routes *xsync.MapOf[string, *route.TopicRouteData]
}

// NewNameServerAdapter creates an adapter with an empty route table
func NewNameServerAdapter() *NameServerAdapter {
	return &NameServerAdapter{routes: xsync.NewMapOf[string, *route.TopicRouteData]()}
}

// SetRoute registers or replaces the route of topic
func (a *NameServerAdapter) SetRoute(topic string, data *route.TopicRouteData) {
	a.routes.Store(topic, data.Clone())
}

// DeleteRoute removes the route of topic, later queries answer TOPIC_NOT_EXIST
func (a *NameServerAdapter) DeleteRoute(topic string) {
	a.routes.Delete(topic)
}

func (a *NameServerAdapter) Codes() []int16 {
	return []int16{common.ReqGetRouteInfoByTopic}
}

func (a *NameServerAdapter) Handle(req *common.Command) *common.Command {
	topic := req.ExtField("topic")
	data, ok := a.routes.Load(topic)
	if !ok {
		return common.NewResponse(req, common.ResTopicNotExist, fmt.Sprintf("No topic route info in name server for the topic: %s", topic))
	}

	body, err := json.Marshal(data)
	if err != nil {
		return common.NewResponse(req, common.ResSystemError, err.Error())
	}

	res := common.NewResponse(req, common.ResSuccess, "")
	res.Body = body
	return res
}
