// ABOUTME: Control plane package
// ABOUTME: Validates operator commands and hands them to the router queue
// Package control implements the operator-facing side of the selector.
//
// Commands are newline-delimited text: a bare source index or a source name
// fades to that source; list, status, help and quit are informational. Every
// transport (standard input, TCP, WebSocket, TUI) goes through one
// Dispatcher, which validates the target before enqueueing it so the audio
// callback never sees an invalid index.
package control
