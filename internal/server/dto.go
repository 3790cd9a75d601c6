package server

import "siteflow/internal/domain"

type chatRequest struct {
	Message     string `json:"message" minLength:"1" doc:"Natural-language request"`
	ProjectName string `json:"project_name,omitempty" doc:"Active project; used when the message names none"`
}

type bulkDeleteRequest struct {
	Pattern string `json:"pattern" minLength:"1" doc:"Case-insensitive substring of the project names to delete"`
	Confirm bool   `json:"confirm,omitempty" doc:"Delete the matches instead of listing them"`
}

type projectPath struct {
	ProjectName string `path:"project_name"`
}

type projectList struct {
	Projects []domain.ProjectContext `json:"projects"`
}

type eventList struct {
	Events []domain.Event `json:"events"`
}
