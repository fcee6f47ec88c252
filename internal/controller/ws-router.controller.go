package controller

import (
	"github.com/sharetube/jam/pkg/wsrouter"
)

const (
	typeKickUser   = "KICK_USER"
	typeAddSong    = "ADD_SONG"
	typeRemoveSong = "REMOVE_SONG"
	typeAddVote    = "ADD_VOTE"
	typeRemoveVote = "REMOVE_VOTE"
	typeSearch     = "SEARCH"
	typePosition   = "POSITION"
	typeNextSong   = "NEXT_SONG"
	typeUpdate     = "UPDATE"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw(), c.authorizeWSMw(), c.validateWSMw())

	// queue
	wsrouter.Handle(mux, typeAddSong, c.handleAddSong)
	wsrouter.Handle(mux, typeRemoveSong, c.handleRemoveSong)
	wsrouter.Handle(mux, typeAddVote, c.handleAddVote)
	wsrouter.Handle(mux, typeRemoveVote, c.handleRemoveVote)
	wsrouter.Handle(mux, typeSearch, c.handleSearch)

	// host
	wsrouter.Handle(mux, typeKickUser, c.handleKickUser)
	wsrouter.Handle(mux, typePosition, c.handlePosition)
	wsrouter.Handle(mux, typeNextSong, c.handleNextSong)

	wsrouter.Handle(mux, typeUpdate, c.handleUpdate)

	return mux
}
