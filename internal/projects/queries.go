package projects

const (
	queryCreate = `
		INSERT INTO projects (user_id, name, category, template_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, category, template_id, chat_id, demo_url, code, created_at, updated_at
	`

	queryGet = `
		SELECT id, user_id, name, category, template_id, chat_id, demo_url, code, created_at, updated_at
		FROM projects
		WHERE id = $1 AND user_id = $2
	`

	queryList = `
		SELECT id, user_id, name, category, template_id, chat_id, demo_url, code, created_at, updated_at
		FROM projects
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`

	queryCountByUser = `
		SELECT COUNT(*)
		FROM projects
		WHERE user_id = $1
	`

	queryUpdate = `
		UPDATE projects
		SET name = COALESCE($1, name),
		    category = COALESCE($2, category),
		    updated_at = NOW()
		WHERE id = $3 AND user_id = $4
		RETURNING id, user_id, name, category, template_id, chat_id, demo_url, code, created_at, updated_at
	`

	queryDelete = `
		DELETE FROM projects
		WHERE id = $1 AND user_id = $2
	`

	queryApplyResult = `
		UPDATE projects
		SET chat_id = COALESCE(NULLIF($1, ''), chat_id),
		    demo_url = COALESCE(NULLIF($2, ''), demo_url),
		    code = $3,
		    updated_at = NOW()
		WHERE id = $4
		RETURNING id, user_id, name, category, template_id, chat_id, demo_url, code, created_at, updated_at
	`

	queryInsertVersion = `
		INSERT INTO project_versions (project_id, chat_id, demo_url, code, summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	queryListVersions = `
		SELECT id, project_id, chat_id, demo_url, code, summary, created_at
		FROM project_versions
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
)
