package store

import (
	"context"
	"database/sql"
	"time"

	"siteflow/internal/domain"
)

// SQLite keeps contexts in the project_contexts table created by the
// embedded migrations.
type SQLite struct {
	DB *sql.DB
}

func (s SQLite) Get(ctx context.Context, projectName string) (domain.ProjectContext, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT context_json FROM project_contexts WHERE project_name=?`, projectName).Scan(&data)
	if err == sql.ErrNoRows {
		return domain.ProjectContext{}, ErrNotFound
	}
	if err != nil {
		return domain.ProjectContext{}, err
	}
	return decode(projectName, []byte(data))
}

func (s SQLite) FindByPartialName(ctx context.Context, pattern string) ([]domain.ProjectContext, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT project_name, context_json FROM project_contexts WHERE ?1 = '' OR instr(lower(project_name), lower(?1)) > 0 ORDER BY project_name`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ProjectContext{}
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, err
		}
		pc, err := decode(name, []byte(data))
		if err != nil {
			return nil, err
		}
		res = append(res, pc)
	}
	return res, rows.Err()
}

func (s SQLite) Save(ctx context.Context, pc domain.ProjectContext) error {
	data, err := encode(pc)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO project_contexts(project_name, context_json, updated_at) VALUES (?,?,?)
ON CONFLICT(project_name) DO UPDATE SET context_json=excluded.context_json, updated_at=excluded.updated_at`,
		pc.ProjectName, string(data), pc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s SQLite) Delete(ctx context.Context, projectName string) error {
	_, err := s.DB.ExecContext(ctx, `DELETE FROM project_contexts WHERE project_name=?`, projectName)
	return err
}
