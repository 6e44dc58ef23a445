package mcpserver

// FrontmatterContract describes the source document format that the
// publisher accepts. LLM consumers should follow it when drafting notes.
const FrontmatterContract = `# Notepub Frontmatter Contract

A source document is published only when it starts with a YAML header and
that header marks it as completed.

## Structure

` + "```" + `markdown
---
title: Human-readable title     # REQUIRED – link target and page title
is_completed: true              # REQUIRED – false keeps the document private
tags:                           # OPTIONAL – YAML list
  - tag-one
description: One-line summary   # OPTIONAL – falls back to summary
summary: Longer summary         # OPTIONAL
priority: 2                     # OPTIONAL – integer
created: 2024-01-15             # OPTIONAL – kept verbatim, part of the slug
updated: 2024-02-01             # OPTIONAL – kept verbatim
category: notes                 # OPTIONAL
---

Body text in Markdown. Link to other documents with [[Their Title]].
` + "```" + `

## Rules

1. The ` + "`---`" + ` fences must open the file; a missing closing fence is a parse error.
2. ` + "`title`" + ` and ` + "`is_completed`" + ` are required. A header without them fails to parse.
3. Documents without a header, or with ` + "`is_completed: false`" + `, are skipped.
4. Wiki links resolve by exact title first, then by relative path with or
   without the ` + "`.md`" + ` extension, then by path suffix.
5. Unresolved links are rendered as ` + "`/target`" + ` and reported as warnings.
6. The slug is the first 12 hex characters of SHA-256 over
   ` + "`title/relative-path/created`" + `. Renaming or retitling a document changes it.
7. Inline math uses ` + "`$...$`" + `, display math uses ` + "`$$...$$`" + `.
8. Files and directories starting with ` + "`.`" + ` and the templates directory are ignored.

## Example

` + "```" + `markdown
---
title: Weekly standup 2024-01-20
is_completed: true
tags:
  - meeting-notes
created: 2024-01-20
---

# Weekly standup

- Review [[Design Doc]] with the team.
` + "```" + `
`
