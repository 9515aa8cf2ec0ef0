/*
Package config loads researchflow settings.

Config is a read-only accessor over decoded YAML or JSON. Lookups accept
dotted paths and fall back to a default when the key is missing or the value
has the wrong type:

	cfg, err := config.FromFile("researchflow.yaml")
	if err != nil {
	    return err
	}
	model := cfg.String("oracle.model", "gpt-4o-mini")
	topK := cfg.Sub("retrieval").Int("top_k", 10)

Load layers the sources into a Settings value. Precedence, lowest first:
Defaults, the config file, .env files, then the process environment. Only
secrets and deployment endpoints are read from the environment:

	OPENAI_API_KEY, DEEPSEEK_API_KEY, ARK_API_KEY   oracle key for that provider
	OPENAI_BASE_URL, OLLAMA_HOST                    oracle / embedder endpoints
	TAVILY_API_KEY                                  web search
	CHROMA_URL                                      vector store
	RESEARCHFLOW_MODEL                              oracle model
	RESEARCHFLOW_CHECKPOINT_DSN                     session store
	RESEARCHFLOW_LOG_LEVEL                          log level

Config is safe for concurrent reads.
*/
package config
