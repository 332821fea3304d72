package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoHistory viene segnalato quando si torna indietro senza cronologia
	ErrNoHistory = errors.New("nessun passaggio precedente a cui tornare")

	// ErrNoStory viene segnalato quando un'operazione richiede una storia caricata
	ErrNoStory = errors.New("nessuna storia caricata")
)

// InvalidStoryError descrive un documento malformato o incompleto
type InvalidStoryError struct {
	Reason error
}

func (e *InvalidStoryError) Error() string {
	return fmt.Sprintf("formato della storia non valido: %v", e.Reason)
}

func (e *InvalidStoryError) Unwrap() error {
	return e.Reason
}

// PassageNotFoundError indica un nome di passaggio inesistente nella storia corrente
type PassageNotFoundError struct {
	Name string
}

func (e *PassageNotFoundError) Error() string {
	return fmt.Sprintf("passaggio %q non trovato", e.Name)
}

// IsPassageNotFound verifica se err è (o avvolge) un PassageNotFoundError
func IsPassageNotFound(err error) bool {
	var target *PassageNotFoundError
	return errors.As(err, &target)
}

// IsInvalidStory verifica se err è (o avvolge) un InvalidStoryError
func IsInvalidStory(err error) bool {
	var target *InvalidStoryError
	return errors.As(err, &target)
}
