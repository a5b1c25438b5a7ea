package mcpserver

// EventFormatContract describes the timeline event fields LLM consumers
// should send when adding or correcting events.
const EventFormatContract = `# LoreKeeper Event Format

Every timeline event is a flat record. The store appends; it never edits
except to archive.

## Fields

| Field    | Required | Notes |
|----------|----------|-------|
| date     | yes      | ISO-8601 date ` + "`" + `YYYY-MM-DD` + "`" + `. Decides the year shard and ordering. |
| title    | yes      | Short human-readable headline. |
| type     | no       | Free-form category, e.g. ` + "`" + `milestone` + "`" + `, ` + "`" + `training` + "`" + `, ` + "`" + `work` + "`" + `. |
| details  | no       | Longer description. |
| tags     | no       | Lowercase words, e.g. ` + "`" + `bjj` + "`" + `, ` + "`" + `robotics` + "`" + `, ` + "`" + `omega1` + "`" + `, ` + "`" + `japanese` + "`" + `. |
| source   | no       | Defaults to ` + "`" + `user_entry` + "`" + `; corrections default to ` + "`" + `correction` + "`" + `. |
| sentiment| no       | Mood label stored in metadata, e.g. ` + "`" + `proud` + "`" + `. |

## Rules

1. **Never edit an event.** To fix one, call ` + "`" + `correct_event` + "`" + ` with its id. The
   original is archived and the corrected copy is appended with the same id.
2. **Dates are zero-padded.** ` + "`" + `2025-3-1` + "`" + ` is rejected; use ` + "`" + `2025-03-01` + "`" + `.
3. **Tags drive themes and epics.** ` + "`" + `robotics` + "`" + `/` + "`" + `omega1` + "`" + `, ` + "`" + `japanese` + "`" + `, ` + "`" + `bjj` + "`" + `,
   ` + "`" + `finances` + "`" + `, ` + "`" + `relationships` + "`" + `, ` + "`" + `health` + "`" + ` and ` + "`" + `career` + "`" + ` feed the monthly epics.
4. **Duplicates are kept.** Adding the same event twice stores two rows.

## Example

` + "```" + `json
{
  "date": "2025-02-14",
  "title": "Earned BJJ blue belt",
  "type": "milestone",
  "details": "Promoted at the academy after two years.",
  "tags": ["bjj", "martial_arts"],
  "sentiment": "proud"
}
` + "```" + `
`
