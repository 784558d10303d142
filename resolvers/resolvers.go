// Package resolvers assembles the default resolver set into a ready-to-use registry/pipeline.
package resolvers

import (
	mcedia "github.com/tobyprime/Mcedia-sub001"
	"github.com/tobyprime/Mcedia-sub001/resolver/bilibili"
	"github.com/tobyprime/Mcedia-sub001/resolver/direct"
	"github.com/tobyprime/Mcedia-sub001/resolver/douyin"
	"github.com/tobyprime/Mcedia-sub001/resolver/yhdm"
	"github.com/tobyprime/Mcedia-sub001/resolver/youtube"
)

// Register adds every shipped resolver to the registry. The short-link resolver expands and
// re-dispatches through dispatcher, so delegation sees the same resolver set. The direct-link
// resolver sits at the lowest priority as the catch-all for plain media URLs.
func Register(registry *mcedia.Registry, config mcedia.ConfigProvider, dispatcher mcedia.Dispatcher) {
	client := bilibili.NewClient()
	registry.MustAddPriority(bilibili.NewShortLinkResolver(dispatcher), mcedia.PriorityHighest)
	registry.MustAdd(bilibili.NewVideoResolver(client))
	registry.MustAdd(bilibili.NewBangumiResolver(client))
	registry.MustAdd(bilibili.NewLiveResolver(client))
	registry.MustAdd(douyin.New())
	registry.MustAdd(yhdm.New())
	registry.MustAdd(youtube.New())
	registry.MustAddPriority(direct.New(config), mcedia.PriorityLowest)
}

// NewPipeline builds a pipeline over the default resolver set.
func NewPipeline(config mcedia.ConfigProvider) *mcedia.Pipeline {
	registry := &mcedia.Registry{}
	pipeline := mcedia.NewPipeline(registry, config)
	Register(registry, config, pipeline)
	return pipeline
}
