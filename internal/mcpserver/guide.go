package mcpserver

// CardGuide describes the card format and the relations between cards. It
// is printed by "cards guide" and served as the cards://guide resource.
const CardGuide = `# Card Guide

A card is one short note stored as <ID>.yaml in the card directory.

## IDs

IDs are dot-separated positive integers: 7, 7.2, 7.2.1. The part before the
last dot names the parent card, which must exist before a child is created.
"cards genid" prints the next top-level ID and "cards genid 7" the next child
of 7. Register without an ID to have one allocated.

## Fields

` + "```" + `yaml
ID: "7.2"
Date: "2025-01-15"        # set on creation
Type: idea                # idea | literature
Title: Short statement     # required
Summary: One line
Tags: [go, storage]
Links: ["3", "12.1"]      # symmetric "see also"
SequenceNext: "7.3"       # the card that comes after this one, or empty
Context: Where the idea came from
Next: What to do with it
Body: |                   # required
  Free text.
` + "```" + `

Unknown fields are rejected.

## Relations

- **Links** are symmetric. "cards link A B" adds each card to the other.
- **Sequence** is a single "comes after" pointer. Replacing an existing
  different successor needs --force.
- **Hierarchy** follows from the IDs; 7.2.1 is a child of 7.2.

## Traversal

- "traverse path A B" prints a shortest chain over links, sequence pointers
  and the hierarchy: A -> ... -> B.
- "traverse ancestry 7.2.1" prints 7 > 7.2 > 7.2.1.
- "traverse ego 7 --depth 2" lists every card within two steps.
- "traverse sequence 7 [--backward]" walks the sequence pointers.

Every overwrite and delete keeps a copy of the previous version in the
backup directory.
`
