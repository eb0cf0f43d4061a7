// Package setup detects AI coding assistants configured in a workspace and
// manages a docsmith section inside their instruction files.
//
// The section is delimited by HTML comment markers so it can be rewritten or
// removed without touching the surrounding content:
//
//	env := setup.GetAgentEnv("claude")
//	status := setup.Check(root, env)
//	path, err := setup.Install(root, env)
//	err = setup.Remove(root, env)
package setup
