// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes Fiche tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/fiche/internal/history"
	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/prompt"
	"github.com/starford/fiche/internal/worksession"
)

// Server wraps the MCP server with Fiche tools.
type Server struct {
	mcp    *server.MCPServer
	store  *history.Store
	client worksession.Generator
	model  func() string
}

// New creates a new MCP server with all Fiche tools registered.
func New(store *history.Store, client worksession.Generator, model func() string) *Server {
	s := &Server{store: store, client: client, model: model}

	s.mcp = server.NewMCPServer(
		"Fiche",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored study sheets, newest first."),
		mcp.WithBoolean("favorites", mcp.Description("Only list favorites")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full HTML of a study sheet. The markup follows the "+
			"page format contract; read it first via the get_page_contract tool or the "+
			"fiche://page-format resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("generate_quiz",
		mcp.WithDescription("Generate revision questions from a stored study sheet. "+
			"The result is saved to the history and its id is returned."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source document id")),
		mcp.WithNumber("count", mcp.Description("Number of questions (default 10)")),
		mcp.WithString("format", mcp.Description("qcm, ouvertes, vf or mix (default mix)")),
		mcp.WithString("difficulty", mcp.Description("facile, moyen or difficile (default moyen)")),
	), s.generateQuiz)

	s.mcp.AddTool(mcp.NewTool("generate_exercises",
		mcp.WithDescription("Generate an exercise set from a stored study sheet. "+
			"The result is saved to the history and its id is returned."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source document id")),
		mcp.WithNumber("count", mcp.Description("Number of exercises (default 3)")),
		mcp.WithString("kind", mcp.Description("application, analyse, synthese or probleme (default application)")),
		mcp.WithBoolean("withCorrection", mcp.Description("Include detailed corrections")),
	), s.generateExercises)

	s.mcp.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a free-form question grounded in a stored study sheet. "+
			"The answer is saved to the history as a new document."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Source document id")),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer")),
	), s.askQuestion)

	s.mcp.AddTool(mcp.NewTool("get_page_contract",
		mcp.WithDescription("Returns the canonical Fiche page format contract. "+
			"Call this before interpreting or producing sheet markup."),
	), s.getPageContract)

	// Resource: page format contract.
	s.mcp.AddResource(
		mcp.NewResource("fiche://page-format", "Page Format Contract",
			mcp.WithResourceDescription("Canonical HTML page format that all study sheets follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPageFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type documentSummary struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Subject  models.Subject `json:"subject"`
	Type     models.Mode    `json:"type,omitempty"`
	ParentID string         `json:"parentId,omitempty"`
	Favorite bool           `json:"favorite,omitempty"`
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	favorites := false
	if v, err := req.RequireBool("favorites"); err == nil {
		favorites = v
	}
	docs, err := s.store.List(favorites)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summaries := make([]documentSummary, len(docs))
	for i, d := range docs {
		summaries[i] = documentSummary{
			ID: d.ID, Title: d.Title, Subject: d.Subject,
			Type: d.Type, ParentID: d.ParentID, Favorite: d.Favorite,
		}
	}
	out, _ := json.MarshalIndent(summaries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.store.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return mcp.NewToolResultText(doc.HTML), nil
}

// derive runs one transformation against a transient session and saves the
// result to the history.
func (s *Server) derive(ctx context.Context, id string, spec prompt.Spec) (*mcp.CallToolResult, error) {
	doc, err := s.store.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}

	engine := worksession.NewEngine(s.client, s.model)
	engine.Start(*doc)
	derived, err := engine.Derive(ctx, spec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.store.Save(*derived); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, _ := json.MarshalIndent(documentSummary{
		ID: derived.ID, Title: derived.Title, Subject: derived.Subject,
		Type: derived.Type, ParentID: derived.ParentID,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) generateQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec := prompt.Quiz{Format: prompt.QuizMixed, Count: 10, Difficulty: prompt.DifficultyMedium}
	if v, err := req.RequireInt("count"); err == nil && v > 0 {
		spec.Count = v
	}
	if v, err := req.RequireString("format"); err == nil && prompt.ValidQuizFormat(v) {
		spec.Format = v
	}
	if v, err := req.RequireString("difficulty"); err == nil && prompt.ValidDifficulty(v) {
		spec.Difficulty = v
	}
	return s.derive(ctx, id, spec)
}

func (s *Server) generateExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	spec := prompt.Exercise{Kind: prompt.ExerciseApplication, Count: 3}
	if v, err := req.RequireInt("count"); err == nil && v > 0 {
		spec.Count = v
	}
	if v, err := req.RequireString("kind"); err == nil && prompt.ValidExerciseKind(v) {
		spec.Kind = v
	}
	if v, err := req.RequireBool("withCorrection"); err == nil {
		spec.WithCorrection = v
	}
	return s.derive(ctx, id, spec)
}

func (s *Server) askQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.derive(ctx, id, prompt.Free{Question: question})
}

func (s *Server) getPageContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PageFormatContract), nil
}

func (s *Server) readPageFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "fiche://page-format",
			MIMEType: "text/markdown",
			Text:     PageFormatContract,
		},
	}, nil
}
