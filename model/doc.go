// Package model defines the judgement data model: the language catalogue,
// submissions, test cases, judge tasks and the verdict taxonomy shared by
// every stage of the execution core.
package model
