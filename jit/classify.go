package jit

import "amxjit/opcode"

var loadStoreOps = opSet(
	opcode.LOAD_PRI, opcode.LOAD_ALT, opcode.LOAD_S_PRI, opcode.LOAD_S_ALT,
	opcode.LREF_PRI, opcode.LREF_ALT, opcode.LREF_S_PRI, opcode.LREF_S_ALT,
	opcode.LOAD_I, opcode.LODB_I, opcode.CONST_PRI, opcode.CONST_ALT,
	opcode.ADDR_PRI, opcode.ADDR_ALT,
	opcode.STOR_PRI, opcode.STOR_ALT, opcode.STOR_S_PRI, opcode.STOR_S_ALT,
	opcode.SREF_PRI, opcode.SREF_ALT, opcode.SREF_S_PRI, opcode.SREF_S_ALT,
	opcode.STOR_I, opcode.STRB_I, opcode.LIDX, opcode.LIDX_B,
	opcode.IDXADDR, opcode.IDXADDR_B, opcode.ALIGN_PRI, opcode.ALIGN_ALT,
	opcode.LCTRL, opcode.SCTRL, opcode.MOVE_PRI, opcode.MOVE_ALT, opcode.XCHG,
	opcode.SWAP_PRI, opcode.SWAP_ALT,
	opcode.ZERO_PRI, opcode.ZERO_ALT, opcode.ZERO, opcode.ZERO_S,
	opcode.SIGN_PRI, opcode.SIGN_ALT,
)

var arithOps = opSet(
	opcode.SHL, opcode.SHR, opcode.SSHR,
	opcode.SHL_C_PRI, opcode.SHL_C_ALT, opcode.SHR_C_PRI, opcode.SHR_C_ALT,
	opcode.SMUL, opcode.SDIV, opcode.SDIV_ALT, opcode.UMUL, opcode.UDIV, opcode.UDIV_ALT,
	opcode.ADD, opcode.SUB, opcode.SUB_ALT, opcode.AND, opcode.OR, opcode.XOR,
	opcode.NOT, opcode.NEG, opcode.INVERT, opcode.ADD_C, opcode.SMUL_C,
	opcode.EQ, opcode.NEQ, opcode.LESS, opcode.LEQ, opcode.GRTR, opcode.GEQ,
	opcode.SLESS, opcode.SLEQ, opcode.SGRTR, opcode.SGEQ,
	opcode.EQ_C_PRI, opcode.EQ_C_ALT,
	opcode.INC_PRI, opcode.INC_ALT, opcode.INC, opcode.INC_S, opcode.INC_I,
	opcode.DEC_PRI, opcode.DEC_ALT, opcode.DEC, opcode.DEC_S, opcode.DEC_I,
	opcode.MOVS, opcode.CMPS, opcode.FILL,
)

var controlFlowOps = opSet(
	opcode.CALL, opcode.CALL_PRI, opcode.JUMP, opcode.JUMP_PRI,
	opcode.JZER, opcode.JNZ, opcode.JEQ, opcode.JNEQ,
	opcode.JLESS, opcode.JLEQ, opcode.JGRTR, opcode.JGEQ,
	opcode.JSLESS, opcode.JSLEQ, opcode.JSGRTR, opcode.JSGEQ,
	opcode.HALT, opcode.BOUNDS,
)

var frameStackOps = opSet(
	opcode.PUSH_PRI, opcode.PUSH_ALT, opcode.PUSH_C, opcode.PUSH, opcode.PUSH_S,
	opcode.PUSH_ADR, opcode.POP_PRI, opcode.POP_ALT,
	opcode.STACK, opcode.HEAP, opcode.PROC, opcode.RET, opcode.RETN,
)

var sysreqOps = opSet(
	opcode.SYSREQ_PRI, opcode.SYSREQ_C, opcode.SYSREQ_D,
)

func opSet(ops ...opcode.Opcode) map[opcode.Opcode]bool {
	m := make(map[opcode.Opcode]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

func isLoadStore(op opcode.Opcode) bool    { return loadStoreOps[op] }
func isArith(op opcode.Opcode) bool        { return arithOps[op] }
func isControlFlow(op opcode.Opcode) bool  { return controlFlowOps[op] }
func isFrameOrStack(op opcode.Opcode) bool { return frameStackOps[op] }
func isSysreq(op opcode.Opcode) bool       { return sysreqOps[op] }
