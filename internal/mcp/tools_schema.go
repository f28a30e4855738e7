package mcp

// handleToolsList returns the schema definitions for every tool.
// This is called when the client requests "tools/list".

func (s *Server) handleToolsList(req *Request) {
	tools := []ToolInfo{
		// === DETECTION ===
		{
			Name:        "detect",
			Description: "CLASSIFY DICTATION TEXT. Detects imaging modality and body part from the report text and stores them as the session context used by expand. Texts shorter than 10 characters yield no detection.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text":    {Type: "string", Description: "Current dictation or report text"},
					"explain": {Type: "boolean", Description: "Set true to include every scoring candidate with matched keywords"},
				},
				Required: []string{"text"},
			},
		},
		{
			Name:        "set_auto_detect",
			Description: "TOGGLE AUTO-DETECT. When off, only the body part is classified and modality detection is skipped.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"enabled": {Type: "boolean", Description: "true to detect modality alongside body part"},
				},
				Required: []string{"enabled"},
			},
		},
		{
			Name:        "get_patterns",
			Description: "LIST PATTERN TABLES. Returns the modality and body part keyword groups with weights.",
			InputSchema: InputSchema{
				Type: "object",
			},
		},

		// === EXPANSION ===
		{
			Name:        "expand",
			Description: "EXPAND MACROS in text. Replaces whole-word, case-insensitive macro names with their replacement text. Smart macros pick the expansion matching the body-part context.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"text":    {Type: "string", Description: "Text to expand"},
					"context": {Type: "string", Description: "Optional: body part to use instead of the session context"},
					"detect":  {Type: "boolean", Description: "Set true to classify the text first and use its body part"},
					"macros":  {Type: "array", Description: "Optional: inline macro list used instead of the stored macros"},
				},
				Required: []string{"text"},
			},
		},

		// === MACRO MANAGEMENT ===
		{
			Name:        "list_macros",
			Description: "LIST MACROS visible to the current user: personal macros first, then global ones.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"active_only": {Type: "boolean", Description: "Set true to hide disabled macros"},
					"scope":       {Type: "string", Description: "Optional: 'personal', 'global' or 'all' (default)"},
				},
			},
		},
		{
			Name:        "find_macros",
			Description: "FIND MACROS by content. Ranks the user's and global macros by TF-IDF similarity of their name and expansion text to the query.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query": {Type: "string", Description: "Words from the text you want to insert, e.g. 'pleural effusion'"},
					"limit": {Type: "integer", Description: "Max results, default 10"},
				},
				Required: []string{"query"},
			},
		},
		{
			Name:        "add_macro",
			Description: "ADD A MACRO. Plain macros replace the trigger with fixed text; smart macros carry per-body-part expansions.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"name":               {Type: "string", Description: "Trigger word, matched as a whole word"},
					"replacement_text":   {Type: "string", Description: "Default expansion"},
					"global":             {Type: "boolean", Description: "Set true to share with every user"},
					"smart":              {Type: "boolean", Description: "Set true to enable context expansions"},
					"context_expansions": {Type: "array", Description: "List of {bodyPart, text} entries for smart macros"},
				},
				Required: []string{"name", "replacement_text"},
			},
		},
		{
			Name:        "delete_macro",
			Description: "DELETE A MACRO by id.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id": {Type: "string", Description: "Macro id"},
				},
				Required: []string{"id"},
			},
		},
		{
			Name:        "set_macro_active",
			Description: "ENABLE OR DISABLE A MACRO without deleting it.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":     {Type: "string", Description: "Macro id"},
					"active": {Type: "boolean", Description: "true to enable"},
				},
				Required: []string{"id", "active"},
			},
		},
	}

	s.sendResult(req.ID, map[string]interface{}{
		"tools": tools,
	})
}
