package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/splitbook/splitbook/internal/model"
)

// Accounts returns every non-root account in the book, with full names
// assembled from the parent chain. The root account itself is structural
// bookkeeping in GnuCash and is never exposed.
func (b *SQLiteBook) Accounts(ctx context.Context) ([]model.Account, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT a.guid, a.name, a.account_type, a.parent_guid, a.placeholder,
		       COALESCE(c.mnemonic, '')
		FROM accounts a
		LEFT JOIN commodities c ON c.guid = a.commodity_guid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type rawAccount struct {
		account model.Account
		parent  string
		isRoot  bool
	}

	raw := make(map[string]rawAccount)
	for rows.Next() {
		var (
			a           model.Account
			parent      sql.NullString
			placeholder int
		)
		if err := rows.Scan(&a.ID, &a.Name, (*string)(&a.Type), &parent, &placeholder, &a.Commodity); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		a.Placeholder = placeholder != 0
		if parent.Valid {
			a.ParentID = parent.String
		}
		raw[a.ID] = rawAccount{
			account: a,
			parent:  a.ParentID,
			isRoot:  a.Type == model.AccountTypeRoot,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	// Assemble full names by walking parent chains. Root accounts do not
	// contribute a path segment.
	fullName := func(id string) string {
		var segments []string
		seen := make(map[string]bool)
		for cur := id; cur != "" && !seen[cur]; {
			seen[cur] = true
			entry, ok := raw[cur]
			if !ok || entry.isRoot {
				break
			}
			segments = append([]string{entry.account.Name}, segments...)
			cur = entry.parent
		}
		return strings.Join(segments, ":")
	}

	accounts := make([]model.Account, 0, len(raw))
	for id, entry := range raw {
		if entry.isRoot {
			continue
		}
		a := entry.account
		a.FullName = fullName(id)
		// Detach parent references that point at the root.
		if p, ok := raw[a.ParentID]; ok && p.isRoot {
			a.ParentID = ""
		}
		accounts = append(accounts, a)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].FullName < accounts[j].FullName
	})

	return accounts, nil
}
