package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound wird zurückgegeben, wenn ein Datensatz nicht existiert.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownGenerator wird zurückgegeben, wenn kein Generator unter dem Namen registriert ist.
	ErrUnknownGenerator = errors.New("unknown generator")
	// ErrInvalidRequest steht für fachlich unvollständige Anfragen.
	ErrInvalidRequest = errors.New("invalid request")
)

// PersistenceError kapselt einen fehlgeschlagenen Datenbankzugriff.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// persistenceError übersetzt gorm.ErrRecordNotFound in ErrNotFound, alles andere in PersistenceError.
func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return &PersistenceError{Op: op, Err: err}
}
