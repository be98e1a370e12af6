package prompt

import "time"

func defaultCategories() []Category {
	return []Category{
		{ID: "general", Name: "General", Description: "General assistant prompts", Color: "bg-blue-500"},
		{ID: "coding", Name: "Coding", Description: "Programming prompts", Color: "bg-green-500"},
		{ID: "writing", Name: "Writing", Description: "Writing assistance prompts", Color: "bg-purple-500"},
		{ID: "analysis", Name: "Analysis", Description: "Data analysis prompts", Color: "bg-orange-500"},
		{ID: "creative", Name: "Creative", Description: "Creative generation prompts", Color: "bg-pink-500"},
		{ID: "education", Name: "Education", Description: "Teaching and tutoring prompts", Color: "bg-indigo-500"},
	}
}

func builtInTemplates(now time.Time) []*Template {
	return []*Template{
		{
			ID:          "helpful-assistant",
			Name:        "Helpful Assistant",
			Description: "A friendly, helpful AI assistant",
			Content:     "You are a friendly, helpful and knowledgeable AI assistant. Answer the user's questions clearly, accurately and usefully.",
			Category:    "general",
			Tags:        []string{"general", "friendly"},
			CreatedAt:   now,
			UpdatedAt:   now,
			IsBuiltIn:   true,
		},
		{
			ID:          "code-reviewer",
			Name:        "Code Reviewer",
			Description: "Professional code review and optimization advice",
			Content: "You are an experienced software engineer and code review expert. Carefully analyze the provided code, point out potential " +
				"problems and suggest improvements, focusing on:\n1. Code quality and readability\n2. Performance\n3. Security issues\n4. Best practices\n5. Potential bugs",
			Category:  "coding",
			Tags:      []string{"code review", "programming", "optimization"},
			CreatedAt: now,
			UpdatedAt: now,
			IsBuiltIn: true,
		},
		{
			ID:          "creative-writer",
			Name:        "Creative Writing Assistant",
			Description: "Help with creative writing and content creation",
			Content: "You are a creative writing assistant skilled in many styles. Produce engaging, imaginative content matching the user's " +
				"request, keeping the prose clear and the tone appropriate.",
			Category:  "writing",
			Tags:      []string{"writing", "creative", "content"},
			CreatedAt: now,
			UpdatedAt: now,
			IsBuiltIn: true,
		},
		{
			ID:          "data-analyst",
			Name:        "Data Analyst",
			Description: "Professional data analysis and insight",
			Content: "You are a professional data analyst who extracts valuable insight from data. Help the user:\n1. Analyze trends and patterns\n" +
				"2. Provide statistical insight\n3. Suggest suitable analysis methods\n4. Explain the business meaning of results\n5. Recommend visualizations",
			Category:  "analysis",
			Tags:      []string{"data analysis", "statistics", "insight"},
			CreatedAt: now,
			UpdatedAt: now,
			IsBuiltIn: true,
		},
		{
			ID:          "teacher",
			Name:        "Teaching Tutor",
			Description: "Patient teaching guidance",
			Content: "You are a patient, professional tutor. Explain complex concepts in plain language with step-by-step guidance:\n1. Use simple " +
				"wording\n2. Give concrete examples and analogies\n3. Encourage questions\n4. Adjust difficulty to the learner\n5. Suggest exercises",
			Category:  "education",
			Tags:      []string{"teaching", "guidance", "explanation"},
			CreatedAt: now,
			UpdatedAt: now,
			IsBuiltIn: true,
		},
	}
}
