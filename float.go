package symrt

// Floating-point operations are not modeled symbolically by this backend.
// Every entry point below succeeds by returning the zero handle, so the
// affected values simply continue in concrete mode. This is a declared
// capability gap, not an error condition.

func (b *Builder) BuildFloat(value float64, isDouble bool) Handle         { return 0 }
func (b *Builder) BuildFloatAdd(x, y Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatSub(x, y Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatMul(x, y Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatDiv(x, y Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatRem(x, y Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatAbs(x Handle) Handle                          { return 0 }
func (b *Builder) BuildFloatNeg(x Handle) Handle                          { return 0 }
func (b *Builder) BuildFloatOrderedGreaterThan(x, y Handle) Handle        { return 0 }
func (b *Builder) BuildFloatOrderedGreaterEqual(x, y Handle) Handle       { return 0 }
func (b *Builder) BuildFloatOrderedLessThan(x, y Handle) Handle           { return 0 }
func (b *Builder) BuildFloatOrderedLessEqual(x, y Handle) Handle          { return 0 }
func (b *Builder) BuildFloatOrderedEqual(x, y Handle) Handle              { return 0 }
func (b *Builder) BuildFloatOrderedNotEqual(x, y Handle) Handle           { return 0 }
func (b *Builder) BuildFloatOrdered(x, y Handle) Handle                   { return 0 }
func (b *Builder) BuildFloatUnordered(x, y Handle) Handle                 { return 0 }
func (b *Builder) BuildFloatUnorderedGreaterThan(x, y Handle) Handle      { return 0 }
func (b *Builder) BuildFloatUnorderedGreaterEqual(x, y Handle) Handle     { return 0 }
func (b *Builder) BuildFloatUnorderedLessThan(x, y Handle) Handle         { return 0 }
func (b *Builder) BuildFloatUnorderedLessEqual(x, y Handle) Handle        { return 0 }
func (b *Builder) BuildFloatUnorderedEqual(x, y Handle) Handle            { return 0 }
func (b *Builder) BuildFloatUnorderedNotEqual(x, y Handle) Handle         { return 0 }
func (b *Builder) BuildIntToFloat(x Handle, isDouble, isSigned bool) Handle { return 0 }
func (b *Builder) BuildFloatToFloat(x Handle, isDouble bool) Handle       { return 0 }
func (b *Builder) BuildBitsToFloat(x Handle, isDouble bool) Handle        { return 0 }
func (b *Builder) BuildFloatToBits(x Handle) Handle                       { return 0 }
func (b *Builder) BuildFloatToSignedInteger(x Handle, bits uint8) Handle  { return 0 }
func (b *Builder) BuildFloatToUnsignedInteger(x Handle, bits uint8) Handle { return 0 }
