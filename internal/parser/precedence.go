package parser

import "github.com/jactl-lang/jactl/internal/token"

// Precedence levels, lowest to highest, sized to Jactl's operator set.
const (
	precNone       = iota
	precTernary    // ?: ?:  (right assoc)
	precNullCoalesce // ??
	precOr           // ||
	precAnd          // &&
	precBitOr        // |
	precBitXor       // ^
	precBitAnd       // &
	precEquality     // == != === !==
	precRelational   // < <= > >= <=> instanceof
	precMatch        // =~ !~
	precShift        // << >> >>>
	precAdditive     // + -
	precMultiplicative // * / %
	precPower          // ** (right assoc)
	precUnary
	precPostfix
	precCall // ( [ . ?.
)

var binaryPrec = map[token.Type]int{
	token.QUESTION_QUESTION: precNullCoalesce,
	token.PIPE_PIPE:         precOr,
	token.AMP_AMP:           precAnd,
	token.PIPE:              precBitOr,
	token.CARET:             precBitXor,
	token.AMP:               precBitAnd,
	token.EQUAL_EQUAL:       precEquality,
	token.BANG_EQUAL:        precEquality,
	token.IDENTICAL:         precEquality,
	token.NOT_IDENTICAL:     precEquality,
	token.LESS:              precRelational,
	token.LESS_EQUAL:        precRelational,
	token.GREATER:           precRelational,
	token.GREATER_EQUAL:     precRelational,
	token.COMPARE:           precRelational,
	token.INSTANCEOF:        precRelational,
	token.MATCH:             precMatch,
	token.NOT_MATCH:         precMatch,
	token.LEFT_SHIFT:        precShift,
	token.RIGHT_SHIFT:       precShift,
	token.RIGHT_SHIFT_UNSIGNED: precShift,
	token.PLUS:              precAdditive,
	token.MINUS:             precAdditive,
	token.STAR:              precMultiplicative,
	token.SLASH:             precMultiplicative,
	token.PERCENT:           precMultiplicative,
	token.STAR_STAR:         precPower,
}

var rightAssoc = map[token.Type]bool{
	token.STAR_STAR: true,
}

var assignOps = map[token.Type]bool{
	token.EQUAL: true, token.PLUS_EQUAL: true, token.MINUS_EQUAL: true,
	token.STAR_EQUAL: true, token.SLASH_EQUAL: true, token.PERCENT_EQUAL: true,
	token.AMP_EQUAL: true, token.PIPE_EQUAL: true, token.CARET_EQUAL: true,
	token.LEFT_SHIFT_EQUAL: true, token.RIGHT_SHIFT_EQUAL: true,
	token.STAR_STAR_EQUAL: true, token.QUESTION_QUESTION_EQUAL: true,
	token.QUESTION_EQUAL: true,
}
