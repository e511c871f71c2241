package tele_api

//go:generate stringer -type=State -trimprefix=State_
type State byte

// Wire form is the single byte; Disconnected is only ever published by the
// broker as the last will.
const (
	State_Invalid State = iota
	State_Boot
	State_Identify
	State_Run
	State_Problem
	State_Disconnected
)
