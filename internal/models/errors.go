package models

import "errors"

// Ошибки редактирования графа. Неудачная операция никогда не оставляет частичных изменений.
var (
	ErrProtectedNode = errors.New("scenario is protected")
	ErrDuplicateID   = errors.New("scenario id already exists")
	ErrEmptyID       = errors.New("scenario id cannot be empty")
	ErrNotFound      = errors.New("scenario not found")
	ErrIndex         = errors.New("choice index out of range")
	ErrInvalidField  = errors.New("invalid scenario field")
)

// Ошибки прохождения.
var (
	// ErrDanglingReference - выбор ведёт на несуществующий сценарий. Обнаруживается только при переходе.
	ErrDanglingReference = errors.New("choice points to a scenario that does not exist")
	ErrNotPlaying        = errors.New("play mode is not active")
)

// Ошибки сериализации.
var (
	ErrParse  = errors.New("malformed quest data")
	ErrSchema = errors.New("quest data does not match the expected schema")
	ErrFormat = errors.New("game data not found in bundle")
)

// Общие ошибки запросов и хранилищ.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrQuestNotFound    = errors.New("saved quest not found")
	ErrSnapshotNotFound = errors.New("play snapshot not found")
	ErrStorageOffline   = errors.New("storage is not configured")
)
