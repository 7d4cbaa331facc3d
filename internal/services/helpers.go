package services

import (
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/utils"
)

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return utils.ErrEntryNotFound
	}
	return err
}
