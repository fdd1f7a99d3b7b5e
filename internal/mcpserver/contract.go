package mcpserver

// SyntaxContract describes the Weave document format that LLM consumers
// should follow when writing documents.
const SyntaxContract = `# Weave Document Format Contract

Every document in a Weave workspace is one section: a Markdown file with a
YAML frontmatter block followed by a CommonMark + GFM body.

## Structure

` + "```" + `markdown
---
id: intro                # REQUIRED – unique section id across the workspace
title: Introduction      # OPTIONAL – display title (defaults to the id)
peek: A short summary    # OPTIONAL – preview text shown on hover
---

Body text in standard Markdown. Link to [another section](node:other-id).
` + "```" + `

## Rules

1. **Frontmatter is mandatory.** The file must start with a line that is
   exactly ` + "`---`" + `, and the block ends at the next such line.
   A leading byte-order mark is ignored.
2. **` + "`id`" + ` is required** and must be a non-empty string. Ids are unique
   across the workspace; duplicates are reported as errors.
3. **Unknown frontmatter fields** are kept verbatim but reported as info.
4. **File paths** end with ` + "`.md`" + ` and use forward slashes.
5. **Encoding** is UTF-8 with a trailing newline.

## Node links

Cross-section references are ordinary inline links whose target is a node URL:

` + "```" + `
[label](node:<id>?display=<display>&export=<export>)
` + "```" + `

- ` + "`display`" + `: footnote, sidenote, margin, overlay, inline, stretch, panel
  (` + "`page`" + ` is accepted as an alias of panel).
- ` + "`export`" + `: appendix, inline, omit.
- Any other query key is kept as an extension parameter and reported as info.
- A bare key such as ` + "`?draft`" + ` is the flag ` + "`true`" + `.
- A link to an id that no document defines is a broken reference (error).
- Reference cycles (a → b → a) are reported as info.

## Blocks

Fenced code blocks whose info string is exactly one of these names are
Weave blocks:

| Info string | Body | Required fields |
|-------------|------|-----------------|
| ` + "`math`" + ` | raw LaTeX | |
| ` + "`pre`" + ` | raw text, whitespace preserved | |
| ` + "`image`" + ` | YAML | ` + "`file`" + `; ` + "`alt`" + ` recommended; ` + "`width`" + `: normal, wide, full |
| ` + "`gallery`" + ` | YAML | non-empty ` + "`files`" + ` list |
| ` + "`audio`" + ` | YAML | ` + "`file`" + ` |
| ` + "`video`" + ` | YAML | ` + "`file`" + ` |
| ` + "`voiceover`" + ` | YAML | ` + "`file`" + ` |
| ` + "`embed`" + ` | YAML | ` + "`url`" + ` |

## Inline syntax

- ` + "`:math[E = mc^2]`" + ` renders inline LaTeX.
- ` + "`:sub[initial]{replacement}`" + ` shows *initial* and swaps in *replacement*
  on interaction.
- Content may not span lines. Escape ` + "`]`" + ` or ` + "`}`" + ` with a backslash.

## Example

~~~markdown
---
id: relativity
title: Special relativity
peek: Energy and mass are equivalent.
---

# Special relativity

The famous relation :math[E = mc^2] follows from the
[Lorentz transformation](node:lorentz?display=sidenote).

` + "```" + `image
file: einstein.jpg
alt: Einstein at the blackboard
width: wide
` + "```" + `
~~~
`
