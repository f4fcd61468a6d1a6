package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"kiomedine-order-bot/internal/pkg/model"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// UsersSource reads the Users tab of the order spreadsheet directly with a
// service account, bypassing the web app.
type UsersSource struct {
	service       *sheets.Service
	spreadsheetID string
	usersRange    string
}

func NewUsersSource(ctx context.Context, credentialsPath, spreadsheetID, usersRange string) (*UsersSource, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsPath),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &UsersSource{
		service:       service,
		spreadsheetID: spreadsheetID,
		usersRange:    usersRange,
	}, nil
}

func (s *UsersSource) GetUsers(ctx context.Context) ([]model.User, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.usersRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read users range %s: %w", s.usersRange, err)
	}
	return parseUserRows(resp.Values)
}

// parseUserRows maps rows to users by the header row, so columns may be
// reordered in the sheet. Rows without a chat id are skipped.
func parseUserRows(rows [][]any) ([]model.User, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int)
	for i, cell := range rows[0] {
		columns[headerKey(cell)] = i
	}
	if _, ok := columns["chatid"]; !ok {
		return nil, fmt.Errorf("users sheet has no chatId column")
	}

	cell := func(row []any, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(fmt.Sprintf("%v", row[i]))
	}

	var users []model.User
	for _, row := range rows[1:] {
		chatID, err := strconv.ParseInt(cell(row, "chatid"), 10, 64)
		if err != nil || chatID == 0 {
			continue
		}
		users = append(users, model.User{
			ChatID:       chatID,
			Name:         cell(row, "name"),
			Username:     strings.TrimPrefix(cell(row, "username"), "@"),
			Town:         cell(row, "town"),
			Phone:        cell(row, "phone"),
			Workplace:    cell(row, "workplace"),
			VerifierName: cell(row, "verifiername"),
			Verified:     parseVerified(cell(row, "verified")),
		})
	}
	return users, nil
}

func headerKey(cell any) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(fmt.Sprintf("%v", cell)), " ", ""))
}

// parseVerified treats a missing value as verified: rows land in the sheet
// only through an admin grant.
func parseVerified(v string) bool {
	switch strings.ToLower(v) {
	case "false", "0", "ні", "no":
		return false
	default:
		return true
	}
}
