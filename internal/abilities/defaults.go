package abilities

// DefaultContent is written when the overlay is missing or unusable. It must
// always parse as a valid overlay with a non-empty tool list.
const DefaultContent = `# Aura abilities overlay.
#
# Tools listed here are merged into the backend's local_tools by id; an entry
# with the same id as a backend tool replaces it. Commands may use {prompt}
# or {message} as a placeholder for the text sent to the tool.
local_tools:
  - id: echo
    name: Echo
    description: Echo the message back. Useful to verify tool wiring.
    command: ["echo", "{message}"]
  - id: date
    name: Date
    description: Print the current date and time.
    command: ["date"]
  - id: cursor
    name: Cursor Agent
    description: Run a one-shot prompt with the Cursor agent CLI.
    command: ["agent", "-p", "{prompt}"]
  - id: copilot_cli
    name: GitHub Copilot CLI
    description: Run a one-shot prompt with the GitHub Copilot CLI.
    command: ["copilot", "-p", "{prompt}", "--allow-all-tools"]
  - id: claude
    name: Claude Code
    description: Run a one-shot prompt with the Claude Code CLI.
    command: ["claude", "-p", "{prompt}"]
  - id: cursor_loop
    name: Cursor Agent (continue)
    description: Continue the previous Cursor agent session with a new prompt.
    command: ["agent", "--resume", "-p", "{prompt}"]
  - id: copilot_cli_loop
    name: GitHub Copilot CLI (continue)
    description: Continue the previous Copilot CLI session with a new prompt.
    command: ["copilot", "--continue", "-p", "{prompt}", "--allow-all-tools"]
  - id: claude_loop
    name: Claude Code (continue)
    description: Continue the most recent Claude Code conversation with a new prompt.
    command: ["claude", "-c", "-p", "{prompt}"]
`
