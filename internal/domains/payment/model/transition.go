package model

type transitionKey struct {
	from   LocalState
	status StatusCode
}

// transitions is the local state table keyed on (current state, incoming
// remote status). Pairs not listed are protocol violations.
var transitions = map[transitionKey]LocalState{
	{StateNew, StatusOpen}:       StateOpen,
	{StateNew, StatusAuthorized}: StateAuthorized,
	{StateNew, StatusSuccess}:    StateSuccess,
	{StateNew, StatusError}:      StateError,

	{StateOpen, StatusOpen}:       StateOpen,
	{StateOpen, StatusAuthorized}: StateAuthorized,
	{StateOpen, StatusSuccess}:    StateSuccess,
	{StateOpen, StatusError}:      StateError,

	{StateAuthorized, StatusAuthorized}: StateAuthorized,
	{StateAuthorized, StatusSuccess}:    StateSuccess,
	{StateAuthorized, StatusError}:      StateError,
}

// NextState returns the local state reached from local on incoming.
func NextState(local LocalState, incoming StatusCode) (LocalState, bool) {
	next, ok := transitions[transitionKey{local, incoming}]
	return next, ok
}
